package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	config "github.com/mwantia/godeid/internal/config/server"
	"github.com/mwantia/godeid/pkg/api"
	"github.com/mwantia/godeid/pkg/db/store"
	"github.com/mwantia/godeid/pkg/dicom"
	"github.com/mwantia/godeid/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"
)

func testLogger() log.LoggerService {
	return log.NewLoggerService("test", config.LogServerConfig{
		Level:      "ERROR",
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	})
}

func testDependencies(t *testing.T, replaceTags string) Dependencies {
	t.Helper()

	s, err := store.NewSQLiteStore(store.SQLiteConfig{Path: ":memory:"}, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() {
		s.Close()
	})

	return Dependencies{
		Config: config.PluginServerConfig{ReplaceTags: replaceTags},
		Store:  s,
		Log:    testLogger(),
	}
}

func testDataset(studyUID, seriesUID, sopUID string) *dicom.Dataset {
	ds := dicom.NewDataset()
	ds.Upsert(tag.StudyInstanceUID, studyUID)
	ds.Upsert(tag.SeriesInstanceUID, seriesUID)
	ds.Upsert(tag.SOPInstanceUID, sopUID)
	return ds
}

func testExportMessage() *api.ExportRequestDataMessage {
	return &api.ExportRequestDataMessage{
		WorkflowInstanceID: "W1",
		ExportTaskID:       "E1",
		CorrelationID:      "C1",
	}
}

func TestNewDeidentifierRequiresReplaceTags(t *testing.T) {
	_, err := NewDeidentifier(testDependencies(t, ""))
	require.Error(t, err)

	_, err = NewDeidentifier(testDependencies(t, "PatientID,Bogus"))
	require.Error(t, err)
	assert.ErrorIs(t, err, dicom.ErrUnknownTag)
}

func TestDeidentifierReplacesIdentifiersAndConfiguredTags(t *testing.T) {
	deps := testDependencies(t, "PatientID")
	plugin, err := NewDeidentifier(deps)
	require.NoError(t, err)

	ds := testDataset("1.2.3", "1.2.3.4", "1.2.3.4.5")
	ds.Upsert(tag.PatientID, "P123")

	ds, msg, err := plugin.Execute(context.Background(), ds, testExportMessage())
	require.NoError(t, err)
	assert.Equal(t, "C1", msg.CorrelationID)

	proxyStudy, _ := ds.GetString(tag.StudyInstanceUID)
	proxySeries, _ := ds.GetString(tag.SeriesInstanceUID)
	proxySop, _ := ds.GetString(tag.SOPInstanceUID)

	for _, proxy := range []string{proxyStudy, proxySeries, proxySop} {
		assert.True(t, strings.HasPrefix(proxy, "2.25."), "expected a generated UID, got %q", proxy)
	}
	assert.NotEqual(t, proxyStudy, proxySeries)
	assert.NotEqual(t, proxySeries, proxySop)

	// PatientID carries VR LO and is replaced with a generated UID.
	patientID, _ := ds.GetString(tag.PatientID)
	assert.NotEqual(t, "P123", patientID)

	// The persisted mapping records every original value.
	mapping, err := deps.Store.GetByInstance(context.Background(), proxySop)
	require.NoError(t, err)
	require.NotNil(t, mapping)

	for name, expected := range map[string]string{
		"StudyInstanceUID":  "1.2.3",
		"SeriesInstanceUID": "1.2.3.4",
		"SOPInstanceUID":    "1.2.3.4.5",
		"PatientID":         "P123",
	} {
		value, ok := mapping.OriginalValues.Get(name)
		require.True(t, ok, "missing original value for %s", name)
		assert.Equal(t, expected, value)
	}
}

func TestDeidentifierSeriesConsistency(t *testing.T) {
	deps := testDependencies(t, "PatientID")
	plugin, err := NewDeidentifier(deps)
	require.NoError(t, err)
	ctx := context.Background()

	first, _, err := plugin.Execute(ctx, testDataset("1.2.3", "1.2.3.4", "1.2.3.4.5"), testExportMessage())
	require.NoError(t, err)
	second, _, err := plugin.Execute(ctx, testDataset("1.2.3", "1.2.3.4", "1.2.3.4.6"), testExportMessage())
	require.NoError(t, err)

	firstStudy, _ := first.GetString(tag.StudyInstanceUID)
	secondStudy, _ := second.GetString(tag.StudyInstanceUID)
	assert.Equal(t, firstStudy, secondStudy)

	firstSeries, _ := first.GetString(tag.SeriesInstanceUID)
	secondSeries, _ := second.GetString(tag.SeriesInstanceUID)
	assert.Equal(t, firstSeries, secondSeries)

	firstSop, _ := first.GetString(tag.SOPInstanceUID)
	secondSop, _ := second.GetString(tag.SOPInstanceUID)
	assert.NotEqual(t, firstSop, secondSop)
}

func TestDeidentifierStudyLevelFallback(t *testing.T) {
	deps := testDependencies(t, "PatientID")
	plugin, err := NewDeidentifier(deps)
	require.NoError(t, err)
	ctx := context.Background()

	first, _, err := plugin.Execute(ctx, testDataset("1.2.3", "1.2.3.4", "1.2.3.4.5"), testExportMessage())
	require.NoError(t, err)

	// A new series of the same study reuses the study's proxy identifiers
	// instead of minting a conflicting study UID.
	second, _, err := plugin.Execute(ctx, testDataset("1.2.3", "1.2.3.9", "1.2.3.9.1"), testExportMessage())
	require.NoError(t, err)

	firstStudy, _ := first.GetString(tag.StudyInstanceUID)
	secondStudy, _ := second.GetString(tag.StudyInstanceUID)
	assert.Equal(t, firstStudy, secondStudy)
}

func TestDeidentifierConcurrentNewSeries(t *testing.T) {
	deps := testDependencies(t, "PatientID")
	plugin, err := NewDeidentifier(deps)
	require.NoError(t, err)

	const workers = 8
	results := make([]*dicom.Dataset, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds := testDataset("1.2.3", "1.2.3.4", dicom.NewUID())
			results[i], _, errs[i] = plugin.Execute(context.Background(), ds, testExportMessage())
		}(i)
	}
	wg.Wait()

	sops := map[string]bool{}
	var study, series string
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])

		s, _ := results[i].GetString(tag.StudyInstanceUID)
		se, _ := results[i].GetString(tag.SeriesInstanceUID)
		sop, _ := results[i].GetString(tag.SOPInstanceUID)

		if i == 0 {
			study, series = s, se
		}
		assert.Equal(t, study, s, "worker %d minted its own proxy study", i)
		assert.Equal(t, series, se, "worker %d minted its own proxy series", i)
		assert.False(t, sops[sop], "proxy SOP instance UID %q issued twice", sop)
		sops[sop] = true
	}
}

func TestDeidentifierPassesThroughUnsupportedVR(t *testing.T) {
	// PatientBirthDate carries VR DA, which has no proxy value.
	deps := testDependencies(t, "PatientBirthDate")
	plugin, err := NewDeidentifier(deps)
	require.NoError(t, err)

	ds := testDataset("1.2.3", "1.2.3.4", "1.2.3.4.5")
	ds.Upsert(tag.PatientBirthDate, "19700101")

	ds, _, err = plugin.Execute(context.Background(), ds, testExportMessage())
	require.NoError(t, err)

	// The outbound value stays, but it is still recorded for restoration.
	birthDate, _ := ds.GetString(tag.PatientBirthDate)
	assert.Equal(t, "19700101", birthDate)

	proxySop, _ := ds.GetString(tag.SOPInstanceUID)
	mapping, err := deps.Store.GetByInstance(context.Background(), proxySop)
	require.NoError(t, err)
	require.NotNil(t, mapping)

	value, ok := mapping.OriginalValues.Get("PatientBirthDate")
	require.True(t, ok)
	assert.Equal(t, "19700101", value)
}

func TestDeidentifierFailsWithoutIdentifiers(t *testing.T) {
	plugin, err := NewDeidentifier(testDependencies(t, "PatientID"))
	require.NoError(t, err)

	ds := dicom.NewDataset()
	ds.Upsert(tag.StudyInstanceUID, "1.2.3")

	_, _, err = plugin.Execute(context.Background(), ds, testExportMessage())
	require.Error(t, err)
}
