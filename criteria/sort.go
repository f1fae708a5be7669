package criteria

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-keyvalue/query"
)

// ParseSort reads a comma separated list of sort rules. Each rule is a field optionally
// followed by a direction, either as "year desc" or "year:desc". The direction defaults to
// ascending. An empty spec yields an empty SortSpec.
func ParseSort[K comparable, V any](spec string) (*query.SortSpec[K, V], error) {
	sort := query.NewSort[K, V]()
	if strings.TrimSpace(spec) == "" {
		return sort, nil
	}

	for _, part := range strings.Split(spec, ",") {
		field, direction, err := parseRule(part)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sort").
				WithTextCode("INVALID_SORT").
				WithMetadata(map[string]any{"sort": spec})
		}
		sort.By(field, direction)
	}
	return sort, nil
}

func parseRule(rule string) (string, query.Direction, error) {
	rule = strings.TrimSpace(rule)
	var tokens []string
	if field, dir, ok := strings.Cut(rule, ":"); ok {
		tokens = []string{strings.TrimSpace(field), strings.TrimSpace(dir)}
	} else {
		tokens = strings.Fields(rule)
	}

	switch {
	case len(tokens) == 0 || tokens[0] == "":
		return "", query.Asc, goerrors.New("empty sort rule", goerrors.CategoryValidation)
	case len(tokens) == 1:
		return tokens[0], query.Asc, nil
	case len(tokens) > 2:
		return "", query.Asc, goerrors.New("unexpected tokens in sort rule "+rule, goerrors.CategoryValidation)
	}

	switch strings.ToLower(tokens[1]) {
	case "asc", "":
		return tokens[0], query.Asc, nil
	case "desc":
		return tokens[0], query.Desc, nil
	default:
		return "", query.Asc, goerrors.New("unknown sort direction "+tokens[1], goerrors.CategoryValidation)
	}
}
