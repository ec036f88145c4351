package rtc_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"omnichat/rtc"
)

type erroringReader struct{}

func (erroringReader) Read([]byte) (int, error) {
	return 0, errors.New("device removed")
}

func TestIntakeRejectsOversizedResource(t *testing.T) {
	log := rtc.NewLog()
	fd := &fakeDispatcher{}
	intake := rtc.NewIntake(fd, log, rtc.WithMaxResourceSize(64))

	log.Append(rtc.Message{Sender: rtc.SenderUser, Content: "hi", Modality: rtc.ModalityText})
	statsBefore := log.Stats()
	lenBefore := log.Len()

	payload := bytes.Repeat([]byte("x"), 65)
	_, err := intake.Submit(context.Background(), bytes.NewReader(payload), "big.png", "image/png")

	if rtc.IntakeCodeOf(err) != rtc.CodeTooLarge {
		t.Fatalf("expected CodeTooLarge, got %v", err)
	}
	if fd.callCount() != 0 {
		t.Errorf("an oversized resource must never be dispatched, got %d calls", fd.callCount())
	}
	if intake.Count() != 0 {
		t.Error("a rejected resource must not be retained")
	}
	if log.Len() != lenBefore || log.Stats() != statsBefore {
		t.Error("a local rejection must leave the conversation log untouched")
	}
}

func TestIntakeAcceptsResourceAtExactLimit(t *testing.T) {
	fd := &fakeDispatcher{}
	intake := rtc.NewIntake(fd, rtc.NewLog(), rtc.WithMaxResourceSize(64))

	payload := bytes.Repeat([]byte("x"), 64)
	res, err := intake.Submit(context.Background(), bytes.NewReader(payload), "ok.png", "image/png")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if res.SizeBytes != 64 {
		t.Errorf("expected size 64, got %d", res.SizeBytes)
	}
}

func TestIntakeRejectsUnsupportedType(t *testing.T) {
	fd := &fakeDispatcher{}
	intake := rtc.NewIntake(fd, rtc.NewLog())

	_, err := intake.Submit(context.Background(), strings.NewReader("MZ"), "tool.exe", "application/x-msdownload")
	if rtc.IntakeCodeOf(err) != rtc.CodeUnsupportedType {
		t.Fatalf("expected CodeUnsupportedType, got %v", err)
	}
	if fd.callCount() != 0 {
		t.Error("an unsupported type must never be dispatched")
	}
}

func TestIntakeReportsReadFailure(t *testing.T) {
	fd := &fakeDispatcher{}
	intake := rtc.NewIntake(fd, rtc.NewLog())

	_, err := intake.Submit(context.Background(), erroringReader{}, "photo.jpg", "image/jpeg")
	if rtc.IntakeCodeOf(err) != rtc.CodeReadFailed {
		t.Fatalf("expected CodeReadFailed, got %v", err)
	}
	if fd.callCount() != 0 {
		t.Error("a failed read must never be dispatched")
	}
}

func TestIntakeAcknowledgedResourceRetained(t *testing.T) {
	log := rtc.NewLog()
	fd := &fakeDispatcher{
		fn: func(service, action string, args []rtc.Arg) (json.RawMessage, error) {
			return json.RawMessage(`{"file_id":"f-123"}`), nil
		},
	}
	intake := rtc.NewIntake(fd, log)

	content := []byte("hello world")
	res, err := intake.Submit(context.Background(), bytes.NewReader(content), "note.txt", "text/plain")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if res.RemoteID != "f-123" {
		t.Errorf("expected remote ID from the acknowledgement, got %q", res.RemoteID)
	}
	if res.Payload != base64.StdEncoding.EncodeToString(content) {
		t.Error("payload must be the base64 encoding of the content")
	}
	if res.UploadedAt.IsZero() {
		t.Error("expected an upload timestamp")
	}

	if intake.Count() != 1 {
		t.Fatalf("expected 1 retained resource, got %d", intake.Count())
	}
	if got := intake.Resources()[0].Name; got != "note.txt" {
		t.Errorf("unexpected retained resource %q", got)
	}

	call := fd.lastCall()
	if call.Service != rtc.ServiceFileProcessor || call.Action != rtc.ActionUploadFile {
		t.Errorf("unexpected dispatch %+v", call)
	}

	entries := log.All()
	if len(entries) != 1 || entries[0].Modality != rtc.ModalitySystem {
		t.Fatalf("expected one system entry, got %+v", entries)
	}
	if !strings.Contains(entries[0].Content, "note.txt") {
		t.Errorf("expected entry to name the file, got %q", entries[0].Content)
	}
}

func TestIntakeFailedSubmissionRetainsNothing(t *testing.T) {
	log := rtc.NewLog()
	fd := &fakeDispatcher{
		fn: func(service, action string, args []rtc.Arg) (json.RawMessage, error) {
			return nil, &rtc.ActionError{Code: rtc.CodeTimeout, Service: service, Action: action}
		},
	}
	intake := rtc.NewIntake(fd, log)

	_, err := intake.Submit(context.Background(), strings.NewReader("data"), "doc.pdf", "application/pdf")
	if rtc.ActionCodeOf(err) != rtc.CodeTimeout {
		t.Fatalf("expected the gateway error to surface unchanged, got %v", err)
	}

	if intake.Count() != 0 {
		t.Error("a failed submission must retain nothing")
	}

	entries := log.All()
	if len(entries) != 1 || entries[0].Modality != rtc.ModalitySystem {
		t.Fatalf("expected one failure system entry, got %+v", entries)
	}
	if !strings.Contains(entries[0].Content, "failed") {
		t.Errorf("expected a failure note, got %q", entries[0].Content)
	}
}

func TestIntakeMimePatternFamilies(t *testing.T) {
	fd := &fakeDispatcher{}
	intake := rtc.NewIntake(fd, rtc.NewLog(),
		rtc.WithAllowedMimePatterns([]string{"image/*", "application/pdf"}),
	)

	cases := []struct {
		mimeType string
		allowed  bool
	}{
		{"image/png", true},
		{"image/webp", true},
		{"application/pdf", true},
		{"application/pdfx", false},
		{"video/mp4", false},
	}
	for _, tc := range cases {
		_, err := intake.Submit(context.Background(), strings.NewReader("x"), "f", tc.mimeType)
		rejected := rtc.IntakeCodeOf(err) == rtc.CodeUnsupportedType
		if tc.allowed && rejected {
			t.Errorf("%s: expected to pass the allow-set", tc.mimeType)
		}
		if !tc.allowed && !rejected {
			t.Errorf("%s: expected rejection, got %v", tc.mimeType, err)
		}
	}
}
