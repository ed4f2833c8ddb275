package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"insightai/internal/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// SurveyCache keeps short-lived copies of surveys so every session start does not hit the backend
type SurveyCache interface {
	Set(ctx context.Context, survey *model.Survey) error
	Get(ctx context.Context, surveyID string) (*model.Survey, error)
	Delete(ctx context.Context, surveyID string) error
}

type surveyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSurveyCache creates a survey cache
func NewSurveyCache(client *redis.Client, ttl time.Duration) SurveyCache {
	return &surveyCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *surveyCache) key(surveyID string) string {
	return fmt.Sprintf("survey:%s", surveyID)
}

func (c *surveyCache) Set(ctx context.Context, survey *model.Survey) error {
	data, err := json.Marshal(survey)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(survey.ID), data, c.ttl).Err()
}

func (c *surveyCache) Get(ctx context.Context, surveyID string) (*model.Survey, error) {
	data, err := c.client.Get(ctx, c.key(surveyID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var survey model.Survey
	if err := json.Unmarshal(data, &survey); err != nil {
		return nil, err
	}
	return &survey, nil
}

func (c *surveyCache) Delete(ctx context.Context, surveyID string) error {
	return c.client.Del(ctx, c.key(surveyID)).Err()
}
