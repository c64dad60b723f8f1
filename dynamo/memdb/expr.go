package memdb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// applyUpdate evaluates a SET-only update expression against item,
// mutating it in place. Clauses look like "#u0 = :u0" or "field = :v";
// other actions (REMOVE, ADD, DELETE) and document paths are rejected.
func applyUpdate(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) error {
	trimmed := strings.TrimSpace(expr)
	const keyword = "SET "
	if len(trimmed) <= len(keyword) || !strings.EqualFold(trimmed[:len(keyword)], keyword) {
		return fmt.Errorf("memdb: only SET update expressions are supported, got %q", expr)
	}
	for _, clause := range strings.Split(trimmed[len(keyword):], ",") {
		lhs, rhs, ok := strings.Cut(clause, "=")
		if !ok {
			return fmt.Errorf("memdb: malformed SET clause %q", strings.TrimSpace(clause))
		}
		field, err := resolveName(strings.TrimSpace(lhs), names)
		if err != nil {
			return err
		}
		value, err := resolveValue(strings.TrimSpace(rhs), values)
		if err != nil {
			return err
		}
		item[field] = value
	}
	return nil
}

// parseKeyEqual understands the single-equality key conditions the
// expression builder emits, e.g. "#0 = :0".
func parseKeyEqual(expr string, names map[string]string, values map[string]types.AttributeValue) (string, types.AttributeValue, error) {
	if strings.Contains(strings.ToUpper(expr), " AND ") {
		return "", nil, fmt.Errorf("memdb: only single equality key conditions are supported, got %q", expr)
	}
	lhs, rhs, ok := strings.Cut(expr, "=")
	if !ok {
		return "", nil, fmt.Errorf("memdb: malformed key condition %q", expr)
	}
	field, err := resolveName(strings.TrimSpace(lhs), names)
	if err != nil {
		return "", nil, err
	}
	value, err := resolveValue(strings.TrimSpace(rhs), values)
	if err != nil {
		return "", nil, err
	}
	return field, value, nil
}

func resolveName(token string, names map[string]string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("memdb: empty attribute name")
	}
	if strings.ContainsAny(token, ".[") {
		return "", fmt.Errorf("memdb: document paths are not supported, got %q", token)
	}
	if !strings.HasPrefix(token, "#") {
		return token, nil
	}
	name, ok := names[token]
	if !ok {
		return "", fmt.Errorf("memdb: unknown expression attribute name %s", token)
	}
	return name, nil
}

func resolveValue(token string, values map[string]types.AttributeValue) (types.AttributeValue, error) {
	if !strings.HasPrefix(token, ":") {
		return nil, fmt.Errorf("memdb: expected a value placeholder, got %q", token)
	}
	value, ok := values[token]
	if !ok {
		return nil, fmt.Errorf("memdb: unknown expression attribute value %s", token)
	}
	return value, nil
}
