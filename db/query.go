package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"agripress/models"

	"github.com/tidwall/gjson"
)

// --- Query structures ---

// QueryCondition is a single "path operator value" clause against a record.
type QueryCondition struct {
	Path          string      // Dot notation path into the record (e.g. "permissions.can_download_articles")
	Operator      string      // Base operator without the -insensitive suffix
	ParsedValue   interface{} // string, float64, bool, or nil
	ValueType     gjson.Type
	IsInsensitive bool
	Original      string // Original clause text for error messages
}

// LogicalOperator joins two adjacent conditions.
type LogicalOperator string

const (
	LogicAnd LogicalOperator = "and"
	LogicOr  LogicalOperator = "or"
)

// ParsedQuery is an alternating sequence of conditions and logical
// operators: Logic[i] applies between Conditions[i] and Conditions[i+1].
type ParsedQuery struct {
	Conditions []QueryCondition
	Logic      []LogicalOperator
}

// --- Parsing ---

var validOperators = map[string]bool{
	"equals": true, "notequals": true,
	"greaterthan": true, "lessthan": true,
	"greaterthanorequals": true, "lessthanorequals": true,
	"contains": true, "startswith": true, "endswith": true,
}

var insensitiveCapable = map[string]bool{
	"equals": true, "notequals": true,
	"contains": true, "startswith": true, "endswith": true,
}

// ParseRecordQuery parses the raw filter clauses from the request into a
// ParsedQuery. Clauses and logical operators must alternate, starting and
// ending with a clause. An empty slice is a valid query matching everything.
func ParseRecordQuery(queryParts []string) (*ParsedQuery, error) {
	if len(queryParts) == 0 {
		return nil, nil
	}

	parsed := &ParsedQuery{}
	expectingCondition := true

	for i, part := range queryParts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("query part at index %d is empty", i)
		}

		if expectingCondition {
			cond, err := parseSingleCondition(part)
			if err != nil {
				return nil, fmt.Errorf("invalid condition at index %d ('%s'): %w", i, part, err)
			}
			parsed.Conditions = append(parsed.Conditions, cond)
		} else {
			logic := LogicalOperator(strings.ToLower(part))
			if logic != LogicAnd && logic != LogicOr {
				return nil, fmt.Errorf("invalid logical operator at index %d: '%s', expected 'and' or 'or'", i, part)
			}
			parsed.Logic = append(parsed.Logic, logic)
		}
		expectingCondition = !expectingCondition
	}

	if expectingCondition {
		return nil, errors.New("query must end with a condition, not a logical operator")
	}
	return parsed, nil
}

// parseSingleCondition splits "path operator value" and types the value.
// Records are always JSON objects, so a path is required.
func parseSingleCondition(conditionStr string) (QueryCondition, error) {
	parts := strings.Fields(conditionStr)
	if len(parts) < 3 {
		return QueryCondition{}, errors.New("condition must be 'path operator value'")
	}

	path := parts[0]
	operator := strings.ToLower(parts[1])

	// Everything after the operator token is the raw value, preserving
	// internal spacing for quoted strings.
	opEnd := strings.Index(conditionStr, parts[1]) + len(parts[1])
	rawValue := strings.TrimSpace(conditionStr[opEnd:])

	isInsensitive := false
	if base, ok := strings.CutSuffix(operator, "-insensitive"); ok {
		if !insensitiveCapable[base] {
			return QueryCondition{}, fmt.Errorf("operator '%s' does not support case-insensitive matching", base)
		}
		isInsensitive = true
		operator = base
	}
	if !validOperators[operator] {
		return QueryCondition{}, fmt.Errorf("invalid operator '%s'", operator)
	}

	var parsedValue interface{}
	var valueType gjson.Type

	switch {
	case len(rawValue) >= 2 && rawValue[0] == '"' && rawValue[len(rawValue)-1] == '"':
		parsedValue = rawValue[1 : len(rawValue)-1]
		valueType = gjson.String
	case rawValue == "null":
		parsedValue = nil
		valueType = gjson.Null
	default:
		// Number before bool: "0" parses as both.
		if f, err := strconv.ParseFloat(rawValue, 64); err == nil {
			parsedValue = f
			valueType = gjson.Number
		} else if b, err := strconv.ParseBool(rawValue); err == nil {
			parsedValue = b
			valueType = gjson.False
			if b {
				valueType = gjson.True
			}
		} else {
			parsedValue = rawValue
			valueType = gjson.String
		}
	}

	return QueryCondition{
		Path:          path,
		Operator:      operator,
		ParsedValue:   parsedValue,
		ValueType:     valueType,
		IsInsensitive: isInsensitive,
		Original:      conditionStr,
	}, nil
}

// --- Evaluation ---

// evaluateQuery reports whether a single record matches the parsed query.
func evaluateQuery(record gjson.Result, query *ParsedQuery) (bool, error) {
	if query == nil || len(query.Conditions) == 0 {
		return true, nil
	}

	result, err := evaluateCondition(record, query.Conditions[0])
	if err != nil {
		return false, fmt.Errorf("error evaluating condition '%s': %w", query.Conditions[0].Original, err)
	}

	for i, logic := range query.Logic {
		next, err := evaluateCondition(record, query.Conditions[i+1])
		if err != nil {
			return false, fmt.Errorf("error evaluating condition '%s': %w", query.Conditions[i+1].Original, err)
		}
		switch logic {
		case LogicAnd:
			result = result && next
		case LogicOr:
			result = result || next
		}
	}
	return result, nil
}

func evaluateCondition(record gjson.Result, cond QueryCondition) (bool, error) {
	target := record.Get(cond.Path)
	if !target.Exists() {
		// Absent field: equals null matches, notequals anything matches,
		// everything else does not.
		switch cond.Operator {
		case "equals":
			return cond.ValueType == gjson.Null, nil
		case "notequals":
			return cond.ValueType != gjson.Null, nil
		default:
			return false, nil
		}
	}
	return compareValue(target, cond)
}

// compareValue applies the condition's operator to a resolved field value.
func compareValue(target gjson.Result, cond QueryCondition) (bool, error) {
	op := cond.Operator

	// Array membership check.
	if target.IsArray() && op == "contains" {
		found := false
		target.ForEach(func(_, elem gjson.Result) bool {
			if elementEquals(elem, cond) {
				found = true
				return false
			}
			return true
		})
		return found, nil
	}

	if target.Type == gjson.Null || cond.ValueType == gjson.Null {
		bothNull := target.Type == gjson.Null && cond.ValueType == gjson.Null
		switch op {
		case "equals":
			return bothNull, nil
		case "notequals":
			return !bothNull, nil
		default:
			return false, fmt.Errorf("operator '%s' invalid for null comparison", op)
		}
	}

	switch target.Type {
	case gjson.String:
		condStr, ok := cond.ParsedValue.(string)
		if !ok {
			if op == "notequals" {
				return true, nil
			}
			return false, fmt.Errorf("type mismatch: cannot compare string field with %s value", cond.ValueType.String())
		}
		targetStr := target.String()
		if cond.IsInsensitive {
			targetStr = strings.ToLower(targetStr)
			condStr = strings.ToLower(condStr)
		}
		switch op {
		case "equals":
			return targetStr == condStr, nil
		case "notequals":
			return targetStr != condStr, nil
		case "contains":
			return strings.Contains(targetStr, condStr), nil
		case "startswith":
			return strings.HasPrefix(targetStr, condStr), nil
		case "endswith":
			return strings.HasSuffix(targetStr, condStr), nil
		default:
			return false, fmt.Errorf("type mismatch: cannot apply numeric operator '%s' to string value", op)
		}

	case gjson.Number:
		condNum, ok := cond.ParsedValue.(float64)
		if !ok {
			if op == "notequals" {
				return true, nil
			}
			return false, fmt.Errorf("type mismatch: value '%v' is not a valid number for operator '%s'", cond.ParsedValue, op)
		}
		targetNum := target.Float()
		switch op {
		case "equals":
			return targetNum == condNum, nil
		case "notequals":
			return targetNum != condNum, nil
		case "greaterthan":
			return targetNum > condNum, nil
		case "lessthan":
			return targetNum < condNum, nil
		case "greaterthanorequals":
			return targetNum >= condNum, nil
		case "lessthanorequals":
			return targetNum <= condNum, nil
		default:
			return false, fmt.Errorf("type mismatch: cannot apply string operator '%s' to numeric value", op)
		}

	case gjson.True, gjson.False:
		condBool, ok := cond.ParsedValue.(bool)
		if !ok {
			if op == "notequals" {
				return true, nil
			}
			return false, fmt.Errorf("type mismatch: value '%v' is not a valid boolean for operator '%s'", cond.ParsedValue, op)
		}
		targetBool := target.Bool()
		switch op {
		case "equals":
			return targetBool == condBool, nil
		case "notequals":
			return targetBool != condBool, nil
		default:
			return false, fmt.Errorf("operator '%s' is invalid for boolean comparison", op)
		}

	default:
		return false, fmt.Errorf("operator '%s' cannot directly compare arrays or nested objects", op)
	}
}

// elementEquals reports whether one array element equals the condition
// value, with strict type matching per element.
func elementEquals(elem gjson.Result, cond QueryCondition) bool {
	switch elem.Type {
	case gjson.String:
		s, ok := cond.ParsedValue.(string)
		if !ok {
			return false
		}
		if cond.IsInsensitive {
			return strings.EqualFold(elem.String(), s)
		}
		return elem.String() == s
	case gjson.Number:
		f, ok := cond.ParsedValue.(float64)
		return ok && elem.Float() == f
	case gjson.True, gjson.False:
		b, ok := cond.ParsedValue.(bool)
		return ok && elem.Bool() == b
	case gjson.Null:
		return cond.ValueType == gjson.Null
	default:
		return false
	}
}

// --- Main query entry point ---

// QueryRecordsParams holds all parameters for the admin record browser.
type QueryRecordsParams struct {
	Filter []string // Raw filter clauses, alternating with "and"/"or"
	SortBy string   // Field path to sort by; empty keeps insertion order
	Order  string   // "asc" (default) or "desc"
	Page   int      // 1-based
	Limit  int      // Max records per page, capped at 100
}

const (
	defaultQueryLimit = 20
	maxQueryLimit     = 100
)

// QueryRecords filters, sorts, and paginates the raw records of one
// collection. Returns the page of records, the total match count before
// pagination, and any parse or sort error. Records that fail condition
// evaluation are skipped with a warning rather than failing the whole query.
func (s *Store) QueryRecords(collection string, params QueryRecordsParams) ([]json.RawMessage, int, error) {
	if !models.IsKnownCollection(collection) {
		return nil, 0, fmt.Errorf("collection '%s': %w", collection, ErrNotFound)
	}

	parsed, err := ParseRecordQuery(params.Filter)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid filter: %w", err)
	}

	snapshot := gjson.ParseBytes(s.Get(collection))
	matched := make([]gjson.Result, 0)
	for _, record := range snapshot.Array() {
		ok, err := evaluateQuery(record, parsed)
		if err != nil {
			log.Printf("WARN: Skipping record in '%s' during query: %v", collection, err)
			continue
		}
		if ok {
			matched = append(matched, record)
		}
	}
	total := len(matched)

	if err := sortResults(matched, params.SortBy, params.Order); err != nil {
		return nil, 0, err
	}

	page, err := paginate(matched, params.Page, params.Limit)
	if err != nil {
		return nil, 0, err
	}

	out := make([]json.RawMessage, len(page))
	for i, r := range page {
		out[i] = json.RawMessage(r.Raw)
	}
	return out, total, nil
}

func sortResults(records []gjson.Result, sortBy, order string) error {
	switch strings.ToLower(order) {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("invalid order value: '%s', expected 'asc' or 'desc'", order)
	}
	if sortBy == "" {
		return nil
	}

	descending := strings.ToLower(order) == "desc"
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := records[i], records[j]
		if descending {
			ri, rj = rj, ri
		}
		a := ri.Get(sortBy)
		b := rj.Get(sortBy)
		if a.Type == gjson.Number && b.Type == gjson.Number {
			return a.Float() < b.Float()
		}
		return a.String() < b.String()
	})
	return nil
}

func paginate(records []gjson.Result, page, limit int) ([]gjson.Result, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	start := (page - 1) * limit
	if start >= len(records) {
		return []gjson.Result{}, nil
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], nil
}
