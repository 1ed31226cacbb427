package usecase

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/FreePeak/db-copilot/internal/domain/entities"
)

// parseArguments converts a raw argument map into typed arguments.
// Structured arguments may also arrive as JSON text, which some tool
// transports use for nested objects.
func parseArguments(raw map[string]interface{}) (entities.Arguments, error) {
	var args entities.Arguments
	var err error

	if args.Filters, err = parseFilters(raw["filters"]); err != nil {
		return args, err
	}
	if args.Select, err = parseStringList(raw["select"]); err != nil {
		return args, fmt.Errorf("%w: select: %v", entities.ErrInvalidArgument, err)
	}
	if args.Order, err = parseOrder(raw["order"]); err != nil {
		return args, err
	}
	if v, ok := raw["limit"]; ok && v != nil {
		limit, ok := toInt(v)
		if !ok || limit < 0 {
			return args, fmt.Errorf("%w: limit must be a non-negative integer", entities.ErrInvalidArgument)
		}
		args.Limit = limit
	}
	if args.Data, err = parseObject(raw["data"]); err != nil {
		return args, fmt.Errorf("%w: data: %v", entities.ErrInvalidArgument, err)
	}
	// confirm is strict: only the boolean true counts
	if b, ok := raw["confirm"].(bool); ok {
		args.Confirm = b
	}
	return args, nil
}

func parseFilters(v interface{}) ([]entities.Condition, error) {
	v, err := decodeJSONText(v)
	if err != nil {
		return nil, fmt.Errorf("%w: filters: %v", entities.ErrInvalidArgument, err)
	}
	switch f := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		conditions := make([]entities.Condition, 0, len(f))
		for i, item := range f {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: filters[%d] must be an object", entities.ErrInvalidArgument, i)
			}
			column, _ := m["column"].(string)
			operator, _ := m["operator"].(string)
			if column == "" {
				return nil, fmt.Errorf("%w: filters[%d] requires a column", entities.ErrInvalidArgument, i)
			}
			conditions = append(conditions, entities.Condition{Column: column, Operator: operator, Value: m["value"]})
		}
		return conditions, nil
	case map[string]interface{}:
		// shorthand {"column": value} means equality
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		conditions := make([]entities.Condition, 0, len(keys))
		for _, k := range keys {
			conditions = append(conditions, entities.Condition{Column: k, Operator: "eq", Value: f[k]})
		}
		return conditions, nil
	default:
		return nil, fmt.Errorf("%w: filters must be a list", entities.ErrInvalidArgument)
	}
}

func parseOrder(v interface{}) ([]entities.OrderBy, error) {
	v, err := decodeJSONText(v)
	if err != nil {
		// plain "column [asc|desc]" text
		if s, ok := v.(string); ok {
			return parseOrderText(s), nil
		}
		return nil, fmt.Errorf("%w: order: %v", entities.ErrInvalidArgument, err)
	}
	switch o := v.(type) {
	case nil:
		return nil, nil
	case string:
		return parseOrderText(o), nil
	case map[string]interface{}:
		order, err := orderFromMap(o)
		if err != nil {
			return nil, err
		}
		return []entities.OrderBy{order}, nil
	case []interface{}:
		var orders []entities.OrderBy
		for _, item := range o {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: order entries must be objects", entities.ErrInvalidArgument)
			}
			order, err := orderFromMap(m)
			if err != nil {
				return nil, err
			}
			orders = append(orders, order)
		}
		return orders, nil
	default:
		return nil, fmt.Errorf("%w: order must be an object", entities.ErrInvalidArgument)
	}
}

func orderFromMap(m map[string]interface{}) (entities.OrderBy, error) {
	column, _ := m["column"].(string)
	if column == "" {
		return entities.OrderBy{}, fmt.Errorf("%w: order requires a column", entities.ErrInvalidArgument)
	}
	direction, _ := m["direction"].(string)
	return entities.OrderBy{Column: column, Direction: direction}, nil
}

func parseOrderText(s string) []entities.OrderBy {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	order := entities.OrderBy{Column: fields[0]}
	if len(fields) > 1 {
		order.Direction = fields[1]
	}
	return []entities.OrderBy{order}
}

func parseStringList(v interface{}) ([]string, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.HasPrefix(strings.TrimSpace(l), "[") {
			var list []string
			if err := json.Unmarshal([]byte(l), &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		var list []string
		for _, part := range strings.Split(l, ",") {
			if p := strings.TrimSpace(part); p != "" {
				list = append(list, p)
			}
		}
		return list, nil
	case []string:
		return l, nil
	case []interface{}:
		list := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}
			list = append(list, s)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}

func parseObject(v interface{}) (map[string]interface{}, error) {
	v, err := decodeJSONText(v)
	if err != nil {
		return nil, err
	}
	switch o := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return o, nil
	default:
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
}

// decodeJSONText decodes string values that hold a JSON object or array
func decodeJSONText(v interface{}) (interface{}, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return v, fmt.Errorf("expected JSON, got %q", s)
	}
	var decoded interface{}
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return v, err
	}
	return decoded, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}
