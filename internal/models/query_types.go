package models

// QueryType is the intent family a fact question was classified into.
type QueryType string

const (
	QueryTypeVolume            QueryType = "volume"
	QueryTypeActiveIngredients QueryType = "active_ingredients"
	QueryTypeIngredients       QueryType = "ingredients"
	QueryTypeUsage             QueryType = "usage"
	QueryTypeWarnings          QueryType = "warnings"
	QueryTypeSkinType          QueryType = "skin_type"
)

// QueryTypes lists the intent families in classification order.
var QueryTypes = []QueryType{
	QueryTypeVolume,
	QueryTypeActiveIngredients,
	QueryTypeIngredients,
	QueryTypeUsage,
	QueryTypeWarnings,
	QueryTypeSkinType,
}
