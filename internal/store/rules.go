package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"commerce-answers/internal/models"
)

// RuleStore loads merchant guardrail lists from mongo, ordered by position.
type RuleStore struct {
	collection *mongo.Collection
}

func NewRuleStore(db *mongo.Database, collection string) *RuleStore {
	return &RuleStore{collection: db.Collection(collection)}
}

type ruleDoc struct {
	ID                interface{} `bson:"_id"`
	ShopID            string      `bson:"shop_id"`
	Name              string      `bson:"name"`
	Description       string      `bson:"description,omitempty"`
	AppliesTo         string      `bson:"applies_to"`
	MatchType         string      `bson:"match_type"`
	Value             []string    `bson:"value"`
	Action            string      `bson:"action"`
	SuggestedResponse string      `bson:"suggested_response,omitempty"`
	Position          int         `bson:"position"`
	Enabled           bool        `bson:"enabled"`
}

func (d ruleDoc) toModel() models.CustomGuardrail {
	id := fmt.Sprint(d.ID)
	if oid, ok := d.ID.(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	return models.CustomGuardrail{
		ID:                id,
		Name:              d.Name,
		Description:       d.Description,
		AppliesTo:         models.Direction(d.AppliesTo),
		MatchType:         models.MatchType(d.MatchType),
		Value:             d.Value,
		Action:            models.GuardrailAction(d.Action),
		SuggestedResponse: d.SuggestedResponse,
	}
}

// ListEnabled returns the shop's enabled rules in evaluation order.
func (s *RuleStore) ListEnabled(ctx context.Context, shopID string) ([]models.CustomGuardrail, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cur, err := s.collection.Find(ctx, bson.M{"shop_id": shopID, "enabled": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrQueryFailed, s.collection.Name(), err)
	}
	defer cur.Close(ctx)

	var docs []ruleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrQueryFailed, s.collection.Name(), err)
	}

	rules := make([]models.CustomGuardrail, 0, len(docs))
	for _, d := range docs {
		rules = append(rules, d.toModel())
	}
	return rules, nil
}
