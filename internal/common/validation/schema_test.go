package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_AnswerQuestion(t *testing.T) {
	res, err := Validate(SchemaAnswerQuestion, `{"shopId":"shop-1","question":"Bu ürün kaç ml?"}`)
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = Validate(SchemaAnswerQuestion, map[string]interface{}{"shopId": "shop-1"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Summary())
}

func TestValidate_GuardrailDirectionEnum(t *testing.T) {
	res, err := Validate(SchemaGuardrailCheck, map[string]interface{}{
		"text":      "hello",
		"direction": "sideways",
	})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("direction"))
}

func TestValidate_PlanSnapshotsNeedProductID(t *testing.T) {
	res, err := Validate(SchemaPlanFactAnswer, []byte(`{"query":"how to use","snapshots":[{"productName":"Serum"}]}`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestValidate_UnknownSchema(t *testing.T) {
	_, err := Validate("nope", "{}")
	assert.Error(t, err)
}

func TestValidate_Turn(t *testing.T) {
	res, err := Validate(SchemaTurn, []byte(`{"shopId":"shop-1","message":"kaç ml?","productIds":["p-1"],"responseLength":"short"}`))
	require.NoError(t, err)
	assert.True(t, res.Valid)

	res, err = Validate(SchemaTurn, []byte(`{"shopId":"shop-1","message":"","responseLength":"huge"}`))
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("message"))
	assert.True(t, res.HasErrors("responseLength"))
}
