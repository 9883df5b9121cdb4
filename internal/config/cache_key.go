package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PublicTestKey returns the cache key for a test's candidate-facing payload.
func (r *CacheKeyStruct) PublicTestKey(testID string) string {
	return fmt.Sprintf("test:%s:public", testID)
}

// ProctorTallyKey returns the hash key counting streamed proctor events per kind for a code.
func (r *CacheKeyStruct) ProctorTallyKey(code string) string {
	return fmt.Sprintf("code:%s:proctor", code)
}

var CacheKey = NewCacheKeyStruct()
