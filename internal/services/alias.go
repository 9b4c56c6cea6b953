package services

import (
	"fmt"
	"unicode"

	"xrayctl/internal/constants"
	xerrors "xrayctl/internal/errors"
)

// ValidateAlias validates a user alias before it becomes a client email
func ValidateAlias(alias string) error {
	if len(alias) < constants.MinAliasLength || len(alias) > constants.MaxAliasLength {
		return &xerrors.InvalidArgumentError{
			Field:   "alias",
			Message: fmt.Sprintf("must be between %d and %d characters", constants.MinAliasLength, constants.MaxAliasLength),
		}
	}

	if !unicode.IsLetter(rune(alias[0])) {
		return &xerrors.InvalidArgumentError{Field: "alias", Message: "must start with a letter"}
	}

	for _, r := range alias {
		if isLatinAlnum(r) || r == '_' || r == '-' || r == '.' {
			continue
		}
		return &xerrors.InvalidArgumentError{Field: "alias", Message: "must contain only Latin letters, numbers, '_', '-' and '.'"}
	}

	return nil
}

func isLatinAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
