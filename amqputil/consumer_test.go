package amqputil

import (
	"encoding/json"
	"testing"

	"github.com/streadway/amqp"

	"github.com/smi-extract/extract-worker/extract"
)

func TestDecodeRequestRoundTrip(t *testing.T) {
	req := extract.Request{
		JobID:               "job-1",
		DicomFilePath:       "a/b.dcm",
		ExtractionDirectory: "job-1",
		OutputPath:          "out.dcm",
		Modality:            "CT",
		IsPooledExtraction:  true,
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := DecodeRequest(amqp.Delivery{Body: body})
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if got != req {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestDecodeRequestInvalidJSON(t *testing.T) {
	_, err := DecodeRequest(amqp.Delivery{Body: []byte("not json")})
	if err == nil {
		t.Fatal("expected an error for invalid JSON")
	}
}
