// Package snapshot persists agreement dump artifacts on disk. Every cloning
// stage reads and writes through the same per-agreement directory so a run
// can be resumed or audited file by file.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edvin/mptclone/internal/mpt"
)

const (
	AgreementFile      = "agreement_object.json"
	NewAgreementFile   = "new_agreement_object.json"
	AuthorizationFile  = "authorization.json"
	FinalAgreementFile = "final_agreement.json"
	WorkbookFile       = "subscriptions.xlsx"

	logsDir = "logs"
)

// Store reads and writes the artifacts of one agreement clone run under
// <root>/<agreement-id>/.
type Store struct {
	root        string
	agreementID string
}

// NewStore returns a store rooted at outputDir for the given source
// agreement. No directories are created until the first write.
func NewStore(outputDir, agreementID string) (*Store, error) {
	if err := mpt.ValidateAgreementID(agreementID); err != nil {
		return nil, err
	}
	return &Store{root: outputDir, agreementID: agreementID}, nil
}

// Dir returns the per-agreement directory path.
func (s *Store) Dir() string {
	return filepath.Join(s.root, s.agreementID)
}

// LogsDir returns the directory stage log files are written to.
func (s *Store) LogsDir() string {
	return filepath.Join(s.Dir(), logsDir)
}

// Exists reports whether a dump directory is already present for the
// agreement. Stages that depend on a prior dump refuse to run without one.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.Dir())
	return err == nil && info.IsDir()
}

// WorkbookPath returns the subscription workbook path inside the store.
func (s *Store) WorkbookPath() string {
	return filepath.Join(s.Dir(), WorkbookFile)
}

// WriteDocument writes the document as indented JSON under the agreement
// directory, creating it if needed.
func (s *Store) WriteDocument(name string, doc mpt.Document) error {
	if err := os.MkdirAll(s.Dir(), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.Dir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ReadDocument reads one artifact back as a document.
func (s *Store) ReadDocument(name string) (mpt.Document, error) {
	path := filepath.Join(s.Dir(), name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var doc mpt.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return doc, nil
}

// WriteSubscription stores a dumped subscription as <SUB-ID>.json. The ID is
// passed separately because dumped documents have their identity stripped.
func (s *Store) WriteSubscription(subscriptionID string, sub mpt.Document) error {
	if subscriptionID == "" {
		return fmt.Errorf("subscription ID is empty")
	}
	return s.WriteDocument(subscriptionID+".json", sub)
}

// ReadSubscription loads a dumped subscription by its identifier.
func (s *Store) ReadSubscription(subscriptionID string) (mpt.Document, error) {
	return s.ReadDocument(subscriptionID + ".json")
}

// Files lists the artifact file names currently present in the agreement
// directory, excluding the logs subdirectory.
func (s *Store) Files() ([]string, error) {
	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		return nil, fmt.Errorf("list snapshot directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
