package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/zimcoin/foundation/logger"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Logger(t *testing.T) {
	t.Log("Given the need to write structured logs.")
	{
		path := filepath.Join(t.TempDir(), "node.log")

		log, err := logger.New("NODE", path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the logger: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to construct the logger.", success)

		log.Infow("startup", "status", "testing")
		log.Sync()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read the log file: %s", failed, err)
		}

		var entry map[string]any
		if err := json.Unmarshal(data, &entry); err != nil {
			t.Fatalf("\t%s\tShould write a JSON entry: %s", failed, err)
		}
		t.Logf("\t%s\tShould write a JSON entry.", success)

		if entry["service"] != "NODE" || entry["status"] != "testing" || entry["msg"] != "startup" {
			t.Logf("\t%s\tgot: %v", failed, entry)
			t.Fatalf("\t%s\tShould carry the service and the fields.", failed)
		}
		t.Logf("\t%s\tShould carry the service and the fields.", success)
	}
}
