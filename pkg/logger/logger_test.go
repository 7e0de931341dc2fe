package logger

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestTextFormatterRendersFields(t *testing.T) {
	f := &CustomTextFormatter{}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.InfoLevel,
		Message: "widget added",
		Data:    logrus.Fields{"symbol": "BTC/USDT"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	line := string(out)
	if !strings.Contains(line, "widget added") {
		t.Errorf("formatted line missing message: %q", line)
	}
	if !strings.Contains(line, "| symbol=BTC/USDT") {
		t.Errorf("formatted line missing structured fields: %q", line)
	}
	if strings.Contains(line, "%!") {
		t.Errorf("formatted line contains a printf verb mismatch artifact: %q", line)
	}
}

func TestTextFormatterWithoutFields(t *testing.T) {
	f := &CustomTextFormatter{}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.WarnLevel,
		Message: "feed connection lost",
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}

	line := string(out)
	if strings.Contains(line, "|") {
		t.Errorf("field separator rendered with no fields present: %q", line)
	}
	if strings.Contains(line, "%!") {
		t.Errorf("formatted line contains a printf verb mismatch artifact: %q", line)
	}
}
