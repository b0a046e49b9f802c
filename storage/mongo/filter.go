package mongo

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fhirstack/fhirstore/query"
)

// Filter renders a backend-neutral query into a MongoDB filter document.
// Field conditions become top-level entries; unions and nested conjunctions
// are collected into a single top-level $and list so that independent union
// clauses compose.
func Filter(q query.Query) (bson.D, error) {
	doc := bson.D{}
	var ands bson.A

	for _, c := range q.Conds {
		switch c := c.(type) {
		case query.AnyOf:
			ors := make(bson.A, 0, len(c))
			for _, m := range c {
				leaf, err := leaf(m)
				if err != nil {
					return nil, err
				}
				ors = append(ors, leaf)
			}
			ands = append(ands, bson.M{"$or": ors})
		case query.AllOf:
			for _, m := range c {
				leaf, err := leaf(m)
				if err != nil {
					return nil, err
				}
				ands = append(ands, leaf)
			}
		default:
			field, value, err := render(c)
			if err != nil {
				return nil, err
			}
			doc = append(doc, bson.E{Key: field, Value: value})
		}
	}

	if len(ands) > 0 {
		doc = append(doc, bson.E{Key: "$and", Value: ands})
	}
	return doc, nil
}

func leaf(c query.Cond) (bson.M, error) {
	field, value, err := render(c)
	if err != nil {
		return nil, err
	}
	return bson.M{field: value}, nil
}

func render(c query.Cond) (string, any, error) {
	switch c := c.(type) {
	case query.FieldEquals:
		return c.Field, c.Value, nil
	case query.TokenMatch:
		elem := bson.M{c.CodeField: c.Code}
		if c.HasSystem {
			elem[c.SystemField] = c.System
		}
		return c.Field, bson.M{"$elemMatch": elem}, nil
	case query.ReferenceMatch:
		return c.Field, primitive.Regex{Pattern: c.Pattern()}, nil
	default:
		return "", nil, fmt.Errorf("mongo: cannot render condition %T", c)
	}
}

// pipeline converts opaque stages to the driver's pipeline type.
func pipeline(stages []query.Stage) []bson.M {
	p := make([]bson.M, 0, len(stages))
	for _, s := range stages {
		p = append(p, bson.M(s))
	}
	return p
}
