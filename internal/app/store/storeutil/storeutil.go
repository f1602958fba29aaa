// Package storeutil holds the query building blocks shared by the list
// stores: case-folded prefix search, date ranges and offset paging.
package storeutil

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxLimit caps a single page.
const MaxLimit = 200

// Page selects one window of a sorted result.
type Page struct {
	Offset int64
	Limit  int64
	Desc   bool
	// Field overrides the store's default sort field.
	Field string
}

// FindOptions sorts by field (then _id for a stable order) and applies
// the page window.
func FindOptions(p Page, field string) *options.FindOptions {
	if p.Field != "" {
		field = p.Field
	}
	dir := 1
	if p.Desc {
		dir = -1
	}
	limit := p.Limit
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	sort := bson.D{{Key: field, Value: dir}}
	if field != "_id" {
		sort = append(sort, bson.E{Key: "_id", Value: dir})
	}
	return options.Find().
		SetSort(sort).
		SetSkip(offset).
		SetLimit(limit)
}

// Prefix matches values of a *_ci field starting with the folded query.
func Prefix(q string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(text.Fold(q)), "$options": "i"}
}

// Search adds an $or of prefix matches over the folded fields and a
// lowercase prefix match over the raw fields (e-mail addresses).
func Search(filter bson.M, q string, foldedFields []string, rawFields ...string) {
	q = strings.TrimSpace(q)
	if q == "" {
		return
	}
	or := bson.A{}
	for _, f := range foldedFields {
		or = append(or, bson.M{f: Prefix(q)})
	}
	for _, f := range rawFields {
		or = append(or, bson.M{f: bson.M{
			"$regex":   "^" + regexp.QuoteMeta(strings.ToLower(q)),
			"$options": "i",
		}})
	}
	if len(or) == 1 {
		for k, v := range or[0].(bson.M) {
			filter[k] = v
		}
		return
	}
	filter["$or"] = or
}

// DateRange restricts field to [from, to]. to is inclusive of its whole day
// when it falls on midnight.
func DateRange(filter bson.M, field string, from, to *time.Time) {
	if from == nil && to == nil {
		return
	}
	r := bson.M{}
	if from != nil {
		r["$gte"] = *from
	}
	if to != nil {
		end := *to
		if end.Equal(end.Truncate(24 * time.Hour)) {
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		r["$lte"] = end
	}
	filter[field] = r
}

// FindAll runs Find and decodes every document.
func FindAll[T any](ctx context.Context, c *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
