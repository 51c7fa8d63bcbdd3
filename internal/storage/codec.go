package storage

import (
	"encoding/json"
	"errors"

	"embryonic/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeEmbryo(e model.Embryo) ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEmbryo(data []byte) (model.Embryo, error) {
	var e model.Embryo
	if err := json.Unmarshal(data, &e); err != nil {
		return model.Embryo{}, err
	}
	if err := checkVersion(e.VersionedRecord); err != nil {
		return model.Embryo{}, err
	}
	return e, nil
}

func EncodeStory(s model.StoryRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeStory(data []byte) (model.StoryRecord, error) {
	var s model.StoryRecord
	if err := json.Unmarshal(data, &s); err != nil {
		return model.StoryRecord{}, err
	}
	if err := checkVersion(s.VersionedRecord); err != nil {
		return model.StoryRecord{}, err
	}
	return s, nil
}

func EncodeFeedback(f model.FeedbackRecord) ([]byte, error) {
	return json.Marshal(f)
}

func DecodeFeedback(data []byte) (model.FeedbackRecord, error) {
	var f model.FeedbackRecord
	if err := json.Unmarshal(data, &f); err != nil {
		return model.FeedbackRecord{}, err
	}
	if err := checkVersion(f.VersionedRecord); err != nil {
		return model.FeedbackRecord{}, err
	}
	return f, nil
}

// Stamp marks a record with the current schema and codec versions.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
