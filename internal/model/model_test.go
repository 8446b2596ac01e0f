package model_test

import (
	"testing"
	"time"

	"github.com/awdoty/GlucoseUploader-sub002/internal/model"
	"github.com/stretchr/testify/assert"
)

// TestGlucoseReadingModel_Validate 测试读数模型校验
func TestGlucoseReadingModel_Validate(t *testing.T) {
	valid := model.GlucoseReadingModel{
		ID:         "r-1",
		BatchID:    "b-1",
		MeasuredAt: time.Now(),
		ValueMgdl:  95,
		State:      model.ReadingStatePending,
	}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(m *model.GlucoseReadingModel)
	}{
		{"missing id", func(m *model.GlucoseReadingModel) { m.ID = "" }},
		{"missing batch", func(m *model.GlucoseReadingModel) { m.BatchID = "" }},
		{"zero time", func(m *model.GlucoseReadingModel) { m.MeasuredAt = time.Time{} }},
		{"non-positive value", func(m *model.GlucoseReadingModel) { m.ValueMgdl = 0 }},
		{"missing state", func(m *model.GlucoseReadingModel) { m.State = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := valid
			tc.mutate(&m)
			assert.Error(t, m.Validate())
		})
	}
}

// TestImportBatchModel_Validate 测试批次模型校验
func TestImportBatchModel_Validate(t *testing.T) {
	valid := model.ImportBatchModel{
		ID:       "b-1",
		FileName: "readings.csv",
		State:    model.BatchStateImported,
	}
	assert.NoError(t, valid.Validate())

	missingFile := valid
	missingFile.FileName = ""
	assert.Error(t, missingFile.Validate())

	missingState := valid
	missingState.State = ""
	assert.Error(t, missingState.Validate())
}

// TestUploadLogModel_Validate 测试上传日志模型校验
func TestUploadLogModel_Validate(t *testing.T) {
	valid := model.UploadLogModel{
		ID:     "l-1",
		Result: model.UploadResultSuccess,
	}
	assert.NoError(t, valid.Validate())

	missingResult := valid
	missingResult.Result = ""
	assert.Error(t, missingResult.Validate())
}

// TestTableNames 测试表名固定
func TestTableNames(t *testing.T) {
	assert.Equal(t, "glucose_readings", model.GlucoseReadingModel{}.TableName())
	assert.Equal(t, "import_batches", model.ImportBatchModel{}.TableName())
	assert.Equal(t, "upload_logs", model.UploadLogModel{}.TableName())
}
