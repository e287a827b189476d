package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"commerce-answers/internal/models"
)

func TestRuleStore_ListEnabled(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes rules in cursor order", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		first := mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: oid},
				{Key: "shop_id", Value: "shop-1"},
				{Key: "name", Value: "No competitor talk"},
				{Key: "applies_to", Value: "both"},
				{Key: "match_type", Value: "keywords"},
				{Key: "value", Value: bson.A{"glowco", "dermashine"}},
				{Key: "action", Value: "block"},
				{Key: "suggested_response", Value: "We only discuss our own products."},
				{Key: "position", Value: 1},
				{Key: "enabled", Value: true},
			})
		second := mtest.CreateCursorResponse(0, ns, mtest.NextBatch,
			bson.D{
				{Key: "_id", Value: "refunds"},
				{Key: "shop_id", Value: "shop-1"},
				{Key: "name", Value: "Refund requests"},
				{Key: "applies_to", Value: "user_message"},
				{Key: "match_type", Value: "phrase"},
				{Key: "value", Value: bson.A{"money back"}},
				{Key: "action", Value: "escalate"},
				{Key: "position", Value: 2},
				{Key: "enabled", Value: true},
			})
		mt.AddMockResponses(first, second)

		store := &RuleStore{collection: mt.Coll}
		rules, err := store.ListEnabled(context.Background(), "shop-1")

		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, oid.Hex(), rules[0].ID)
		assert.Equal(t, models.DirectionBoth, rules[0].AppliesTo)
		assert.Equal(t, []string{"glowco", "dermashine"}, rules[0].Value)
		assert.Equal(t, models.ActionBlock, rules[0].Action)
		assert.Equal(t, "refunds", rules[1].ID)
		assert.Equal(t, models.MatchPhrase, rules[1].MatchType)
		assert.Empty(t, rules[1].SuggestedResponse)
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Message: "not authorized",
			Name:    "Unauthorized",
		}))

		store := &RuleStore{collection: mt.Coll}
		_, err := store.ListEnabled(context.Background(), "shop-1")

		assert.ErrorIs(t, err, ErrQueryFailed)
		assert.Contains(t, err.Error(), "not authorized")
	})
}
