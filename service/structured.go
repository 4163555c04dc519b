package service

import (
	"encoding/json"
	"errors"
	"strings"

	"policyassist-backend/models"
)

// structuredReply is the JSON shape requested from the structuring call.
type structuredReply struct {
	Answer             *string  `json:"answer"`
	SuggestedFollowUps []string `json:"suggested_follow_ups"`
	NextSteps          string   `json:"next_steps"`
}

var errNotJSONObject = errors.New("structuring reply is not a JSON object")

// parseStructuredAnswer decodes the structuring reply. Code fences around the
// object are tolerated. A missing or blank answer falls back to fallbackAnswer.
func parseStructuredAnswer(raw, fallbackAnswer string) (models.StructuredAnswer, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "{") {
		return models.StructuredAnswer{}, errNotJSONObject
	}

	var reply structuredReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return models.StructuredAnswer{}, err
	}

	answer := fallbackAnswer
	if reply.Answer != nil {
		if cleaned := StripMetaSections(*reply.Answer); cleaned != "" {
			answer = cleaned
		}
	}

	followUps := make([]string, 0, models.MaxFollowUps)
	for _, f := range reply.SuggestedFollowUps {
		if len(followUps) == models.MaxFollowUps {
			break
		}
		if f = strings.TrimSpace(f); f != "" {
			followUps = append(followUps, f)
		}
	}

	return models.StructuredAnswer{
		Answer:             answer,
		SuggestedFollowUps: followUps,
		NextSteps:          strings.TrimSpace(reply.NextSteps),
	}, nil
}

// heuristicStructure derives follow-ups from the answer's own lines: those
// ending in "?" or starting with "suggest".
func heuristicStructure(answer string) models.StructuredAnswer {
	var followUps []string
	for _, line := range strings.Split(answer, "\n") {
		if len(followUps) == models.MaxFollowUps {
			break
		}
		line = strings.Trim(strings.TrimSpace(line), "-* ")
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "suggest") || strings.HasSuffix(line, "?") {
			followUps = append(followUps, line)
		}
	}
	if len(followUps) == 0 {
		followUps = append([]string(nil), defaultFollowUps...)
	}

	return models.StructuredAnswer{
		Answer:             answer,
		SuggestedFollowUps: followUps,
		NextSteps:          defaultNextSteps,
	}
}
