// File: lixenwraith/layerconf/validate.go
package layerconf

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// validate runs schema over the merged data of key. Schema failures become a
// *ValidationError naming every failing field; a panicking schema becomes a
// *LoaderError.
func validate(key string, data map[string]any, schema Schema) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &LoaderError{Key: key, Err: fmt.Errorf("schema panicked: %v", r)}
		}
	}()

	value, err = schema.Parse(data)
	if err != nil {
		return nil, &ValidationError{Key: key, Issues: schemaIssues(err)}
	}
	return value, nil
}

var quotedName = regexp.MustCompile(`'([^']*)'`)

// schemaIssues breaks a schema error into per-field issues.
func schemaIssues(err error) []Issue {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return append([]Issue(nil), verr.Issues...)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		issues := make([]Issue, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			path := fe.Namespace()
			// Drop the root type name
			if _, rest, found := strings.Cut(path, "."); found {
				path = rest
			}
			constraint := fe.Tag()
			if fe.Param() != "" {
				constraint += "=" + fe.Param()
			}
			issues = append(issues, Issue{Path: path, Message: fmt.Sprintf("failed '%s' constraint", constraint)})
		}
		return issues
	}

	var decodeErr *mapstructure.Error
	if errors.As(err, &decodeErr) {
		issues := make([]Issue, 0, len(decodeErr.Errors))
		for _, msg := range decodeErr.Errors {
			issues = append(issues, decodeIssue(msg))
		}
		return issues
	}

	return []Issue{decodeIssue(err.Error())}
}

// decodeIssue extracts the field name mapstructure quotes at the start of its messages.
func decodeIssue(msg string) Issue {
	if m := quotedName.FindStringSubmatch(msg); m != nil && m[1] != "" {
		return Issue{Path: m[1], Message: msg}
	}
	return Issue{Message: msg}
}
