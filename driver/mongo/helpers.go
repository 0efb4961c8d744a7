// Package driver provides the MongoDB backend for the mango ODM.
// This file contains helper functions used by the MongoDB driver for
// query translation and safety checks.
package driver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leandroluk/mango/core"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
)

// buildFilter translates a condition tree into a MongoDB filter document.
func buildFilter(condition *core.Condition) bson.M {
	if condition == nil {
		return bson.M{}
	}
	if len(condition.Children) > 0 {
		childFilterList := make([]bson.M, 0, len(condition.Children))
		for _, child := range condition.Children {
			childFilterList = append(childFilterList, buildFilter(child))
		}
		switch *condition.Operator {
		case core.OpAnd:
			return bson.M{"$and": childFilterList}
		case core.OpOr:
			return bson.M{"$or": childFilterList}
		case core.OpNot:
			return bson.M{"$nor": childFilterList}
		default:
			return bson.M{}
		}
	}

	fieldName := condition.FieldName
	switch *condition.Operator {
	case core.OpNil:
		return bson.M{fieldName: bson.M{"$eq": nil}}
	case core.OpEq:
		return bson.M{fieldName: condition.Value}
	case core.OpNe:
		return bson.M{fieldName: bson.M{"$ne": condition.Value}}
	case core.OpGt:
		return bson.M{fieldName: bson.M{"$gt": condition.Value}}
	case core.OpGte:
		return bson.M{fieldName: bson.M{"$gte": condition.Value}}
	case core.OpLt:
		return bson.M{fieldName: bson.M{"$lt": condition.Value}}
	case core.OpLte:
		return bson.M{fieldName: bson.M{"$lte": condition.Value}}
	case core.OpLike:
		pattern := toMongoLikePattern(fmt.Sprintf("%v", condition.Value))
		return bson.M{fieldName: primitive.Regex{Pattern: pattern, Options: "i"}}
	case core.OpIn:
		var array []any
		switch v := condition.Value.(type) {
		case []any:
			array = v
		default:
			array = []any{condition.Value}
		}
		return bson.M{fieldName: bson.M{"$in": array}}
	case core.OpExists:
		return bson.M{fieldName: bson.M{"$exists": condition.Value}}
	default:
		return bson.M{}
	}
}

// toMongoLikePattern converts a SQL-like pattern into a MongoDB regex pattern.
//
// It replaces % with .* (wildcard for multiple characters) and
// _ with . (wildcard for a single character).
//
// Example:
//
//	input := "%admin_"
//	regex := toMongoLikePattern(input)
//	// regex == ".*admin."
func toMongoLikePattern(input string) string {
	const percent = "__PERCENT__"
	const underscore = "__UNDERSCORE__"
	// underscores first, so the percent token's own underscores survive
	safe := strings.ReplaceAll(input, "_", underscore)
	safe = strings.ReplaceAll(safe, "%", percent)
	safe = regexp.QuoteMeta(safe)
	safe = strings.ReplaceAll(safe, percent, ".*")
	safe = strings.ReplaceAll(safe, underscore, ".")
	return safe
}

// safeCondition ensures that a Where clause always has a valid root condition.
//
// If the query or its Condition is nil, it returns an empty AND condition.
// This prevents drivers from having to handle nil pointers explicitly.
func safeCondition(query *core.Where) *core.Condition {
	if query == nil || query.Condition == nil {
		return &core.Condition{Operator: &core.OpAnd, Children: []*core.Condition{}}
	}
	return query.Condition
}

// sortDocument translates sort rules into an ordered BSON document, used
// both for query ordering and index key declarations.
func sortDocument(rules []core.Sort) bson.D {
	doc := bson.D{}
	for _, rule := range rules {
		direction := 1
		if rule.Order < 0 {
			direction = -1
		}
		doc = append(doc, bson.E{Key: rule.FieldName, Value: direction})
	}
	return doc
}

// indexOptions maps generic index options onto the driver's option builder.
// Unknown option names are ignored.
func indexOptions(options map[string]any) *mopt.IndexOptions {
	opts := mopt.Index()
	for key, value := range options {
		switch key {
		case "name":
			if name, ok := value.(string); ok {
				opts.SetName(name)
			}
		case "unique":
			if unique, ok := value.(bool); ok {
				opts.SetUnique(unique)
			}
		case "sparse":
			if sparse, ok := value.(bool); ok {
				opts.SetSparse(sparse)
			}
		case "expireAfterSeconds":
			switch ttl := value.(type) {
			case int:
				opts.SetExpireAfterSeconds(int32(ttl))
			case int32:
				opts.SetExpireAfterSeconds(ttl)
			case int64:
				opts.SetExpireAfterSeconds(int32(ttl))
			}
		}
	}
	return opts
}
