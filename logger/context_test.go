package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithLogFields_Merges(t *testing.T) {
	ctx := WithLogFields(context.Background(), LogFields{Username: "alice", Department: "hr"})
	ctx = WithLogFields(ctx, LogFields{Component: "policyassist.service.answer", Department: "it"})

	fields := GetLogFields(ctx)
	assert.Equal(t, "alice", fields.Username)
	assert.Equal(t, "it", fields.Department)
	assert.Equal(t, "policyassist.service.answer", fields.Component)
}

func TestGetLogFields_Empty(t *testing.T) {
	assert.Equal(t, LogFields{}, GetLogFields(context.Background()))
}

func TestTraceHandler_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewTraceHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithLogFields(context.Background(), LogFields{Username: "bob", Role: "employee"})
	log.InfoContext(ctx, "query answered")

	out := buf.String()
	assert.Contains(t, out, "username=bob")
	assert.Contains(t, out, "role=employee")
	assert.NotContains(t, out, "trace_id")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
}
