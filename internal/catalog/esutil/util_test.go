package esutil

import (
	"encoding/json"
	"testing"

	"arc_community_backend/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func TestEntryToElasticsearchDoc(t *testing.T) {
	img := "https://cdn.example/anvil.png"
	e := &catalog.Entry{
		Kind:     catalog.KindWeapon,
		Name:     "Anvil",
		Slug:     "anvil",
		Rarity:   "rare",
		Value:    640,
		Stats:    datatypes.JSON(`{"damage":40}`),
		ImageURL: &img,
	}

	raw, err := EntryToElasticsearchDoc(e)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, "weapon", doc["kind"])
	assert.Equal(t, float64(640), doc["value"])
	assert.Equal(t, map[string]interface{}{"damage": float64(40)}, doc["stats"])
	assert.Equal(t, img, doc["image_url"])

	_, err = EntryToElasticsearchDoc(nil)
	assert.Error(t, err)
}

func TestNewIndexer_NilClientDisablesIndexing(t *testing.T) {
	assert.Nil(t, NewIndexer(nil, zap.NewNop()))
}
