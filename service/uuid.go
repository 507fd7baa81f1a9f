package service

import (
	hcuuid "github.com/hashicorp/go-uuid"
)

// UUID is a 128-bit identifier, assigned at first creation and preserved
// across hot updates; cold updates may preserve or replace it.
type UUID string

// NewUUID mints a fresh random UUID; the same generator backs the HTTP
// layer's incident ids.
func NewUUID() (UUID, error) {
	u, err := hcuuid.GenerateUUID()
	if err != nil {
		return "", ErrorUUIDGenerate.Error(err)
	}
	return UUID(u), nil
}

// ParseUUID validates that s looks like a uuid string and returns it typed.
func ParseUUID(s string) (UUID, error) {
	if s == "" {
		return "", ErrorUUIDParse.Error(nil)
	}
	if _, err := hcuuid.ParseUUID(s); err != nil {
		return "", ErrorUUIDParse.Error(err)
	}
	return UUID(s), nil
}

func (u UUID) String() string {
	return string(u)
}

func (u UUID) IsZero() bool {
	return u == ""
}
