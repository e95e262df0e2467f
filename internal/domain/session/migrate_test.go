package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
)

func strp(s string) *string { return &s }

func TestMigrateLegacyLayers(t *testing.T) {
	raw := RawRecord{
		SessionID:        "session_acme_1",
		Data:             []byte(`{"foundation":{"company_name":"Acme Électronique"},"currentPage":"product"}`),
		AutoPopulated:    []byte(`{"business_type":"Electronics"}`),
		UserEntered:      []byte(`{"primarySupplierCountry":"China","importVolume":"$1M - $5M"}`),
		FoundationStatus: strp("completed"),
		ProductStatus:    strp("pending"),
	}

	rec, err := Migrate(raw)
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, "Acme Électronique", rec.Profile.CompanyName)
	assert.Equal(t, "Electronics", rec.Profile.BusinessType)
	assert.Equal(t, "China", rec.Profile.PrimarySupplierCountry)
	assert.Equal(t, "$1M - $5M", rec.Profile.ImportVolume)
	assert.True(t, rec.Completed[cascade.StageFoundation])
	assert.False(t, rec.Completed[cascade.StageProduct])
	assert.Equal(t, "product", rec.CurrentPage)
}

func TestMigrateLegacyPrefersDataColumn(t *testing.T) {
	raw := RawRecord{
		Data:          []byte(`{"companyName":"From Data"}`),
		AutoPopulated: []byte(`{"companyName":"From Auto"}`),
	}
	rec, err := Migrate(raw)
	require.NoError(t, err)
	assert.Equal(t, "From Data", rec.Profile.CompanyName)
}

func TestMigrateIgnoresBrokenLegacyJSON(t *testing.T) {
	rec, err := Migrate(RawRecord{SessionID: "s", Data: []byte("{not json"), UserEntered: []byte(`{"businessType":"Textiles"}`)})
	require.NoError(t, err)
	assert.Equal(t, "Textiles", rec.Profile.BusinessType)
}

func TestMigrateLegacyBeastAnalysis(t *testing.T) {
	raw := RawRecord{Data: []byte(`{"currentPage":"routing","beastMasterAnalysis":{"confidence":88,"compoundInsights":2,"timestamp":"2025-01-02T03:04:05Z"}}`)}
	rec, err := Migrate(raw)
	require.NoError(t, err)
	require.NotNil(t, rec.Analysis)
	assert.Equal(t, 88, rec.Analysis.Confidence)
	assert.Equal(t, 2, rec.Analysis.CompoundInsights)
	assert.Equal(t, 2025, rec.Analysis.At.Year())
}

func TestEncodeMigrateRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := New("session_x_1", at)
	rec.Profile = profile.UserProfile{
		CompanyName:            "  Zürich & Söhne GmbH ",
		BusinessType:           "Electronics",
		PrimarySupplierCountry: "CN",
		TimelinePriority:       profile.PriorityCost,
	}
	rec.CurrentPage = "foundation"
	rec.Stages[cascade.StageFoundation] = json.RawMessage(`{"companyName":"  Zürich & Söhne GmbH "}`)
	rec.Completed[cascade.StageFoundation] = true

	raw, err := Encode(rec)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, raw.SchemaVersion)
	require.NotNil(t, raw.FoundationStatus)
	assert.Nil(t, raw.ProductStatus)

	back, err := Migrate(raw)
	require.NoError(t, err)
	assert.Equal(t, rec.Profile, back.Profile)
	assert.Equal(t, rec.Completed, back.Completed)
	assert.JSONEq(t, string(rec.Stages[cascade.StageFoundation]), string(back.Stages[cascade.StageFoundation]))
}

func TestMigrateV2InvalidEnvelope(t *testing.T) {
	_, err := Migrate(RawRecord{SchemaVersion: 2, Data: []byte("[")})
	require.Error(t, err)
}
