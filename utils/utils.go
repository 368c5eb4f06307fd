package utils

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/text/unicode/norm"
)

func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 || e.Code == 11001 {
				return true
			}
		}
	}

	var cmd mongo.CommandError
	if errors.As(err, &cmd) && (cmd.Code == 11000 || cmd.Code == 11001) {
		return true
	}

	// Fallback
	return strings.Contains(err.Error(), "E11000 duplicate key error")
}

// NormalizeIdentity trims, applies NFKC and lower-cases a username or email so
// visually identical identities collide on the unique indexes.
func NormalizeIdentity(s string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(s)))
}

// AnyBlank reports whether any of the values is empty after trimming.
func AnyBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
