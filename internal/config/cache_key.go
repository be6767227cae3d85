package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// LearnerSessionKey returns the cache key for a learner's login session
func (r *CacheKeyStruct) LearnerSessionKey(learnerID int) string {
	return fmt.Sprintf("login:%d", learnerID)
}

// AttemptStartKey returns the cache key for a learner's attempt start time
func (r *CacheKeyStruct) AttemptStartKey(testID string, learnerID int) string {
	return fmt.Sprintf("learner:%d:test:%s:attempt_start", learnerID, testID)
}

// LearnerAnswersKey returns the cache key for a learner's saved answers hash
func (r *CacheKeyStruct) LearnerAnswersKey(testID string, learnerID int) string {
	return fmt.Sprintf("learner:%d:test:%s:answers", learnerID, testID)
}

// TestPayloadKey returns the cache key for a test's learner-safe payload
func (r *CacheKeyStruct) TestPayloadKey(testID string) string {
	return fmt.Sprintf("test:%s:payload", testID)
}

// TestDefinitionKey returns the cache key for a test's full grading definition
func (r *CacheKeyStruct) TestDefinitionKey(testID string) string {
	return fmt.Sprintf("test:%s:definition", testID)
}

// TestDurationKey returns the cache key for a test's duration in minutes
func (r *CacheKeyStruct) TestDurationKey(testID string) string {
	return fmt.Sprintf("test:%s:duration", testID)
}

var CacheKey = NewCacheKeyStruct()
