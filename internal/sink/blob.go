package sink

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/internal/protection"
)

const blobIDLength = 12

// BlobSink stores events as date-partitioned blobs on the local filesystem.
// Keys look like 2026/05/01/20260501-120000-a1b2c3d4e5f6.json.gz. Existing
// keys are never overwritten. Queries scan day directories bounded by the
// filter range and decode each blob, so they are slow by design.
type BlobSink struct {
	root         string
	compress     bool
	cipher       *protection.Cipher
	maxRetention time.Duration
	log          *zap.Logger
}

// NewBlobSink prepares the blob root. cipher may be nil to store plaintext.
func NewBlobSink(root string, compress bool, cipher *protection.Cipher, maxRetention time.Duration, log *zap.Logger) (*BlobSink, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &BlobSink{
		root:         root,
		compress:     compress,
		cipher:       cipher,
		maxRetention: maxRetention,
		log:          log,
	}, nil
}

// Name identifies the sink in fan-out results and health reports.
func (s *BlobSink) Name() string { return "blob" }

// Capabilities declares the archival profile.
func (s *BlobSink) Capabilities() Capabilities {
	return Capabilities{ImmutableStorage: true, MaxRetention: s.maxRetention}
}

func (s *BlobSink) key(event *models.AuditEvent) string {
	ts := event.Timestamp.UTC()
	idhex := strings.ReplaceAll(event.ID, "-", "")
	if len(idhex) > blobIDLength {
		idhex = idhex[:blobIDLength]
	}
	return filepath.Join(
		ts.Format("2006"), ts.Format("01"), ts.Format("02"),
		fmt.Sprintf("%s-%s-%s.json.gz", ts.Format("20060102"), ts.Format("150405"), idhex),
	)
}

// Write stores one event as a blob. An already existing key is left alone so
// repeated archival of the same event stays idempotent.
func (s *BlobSink) Write(ctx context.Context, event *models.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(s.root, s.key(event))
	if _, err := os.Stat(path); err == nil {
		s.log.Debug("blob already stored", zap.String("key", s.key(event)))
		return nil
	}

	payload, err := s.encode(event)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob partition: %w", err)
	}

	// O_EXCL guards against a concurrent writer claiming the same key.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("create blob: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(payload); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

// WriteBatch stores each event as its own blob.
func (s *BlobSink) WriteBatch(ctx context.Context, events []*models.AuditEvent) error {
	for _, event := range events {
		if err := s.Write(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Query scans day partitions within the filter range and filters decoded
// events in memory.
func (s *BlobSink) Query(ctx context.Context, filter models.AuditEventFilter) ([]*models.AuditEvent, error) {
	var matched []*models.AuditEvent
	err := s.scan(ctx, filter, func(event *models.AuditEvent) bool {
		matched = append(matched, event)
		return true
	})
	if err != nil {
		return nil, err
	}
	return sortAndPage(matched, filter), nil
}

// Count scans like Query but only tallies matches. A MaxResults bound stops
// the scan early, which keeps health probes cheap.
func (s *BlobSink) Count(ctx context.Context, filter models.AuditEventFilter) (int64, error) {
	var count int64
	err := s.scan(ctx, filter, func(*models.AuditEvent) bool {
		count++
		return filter.MaxResults <= 0 || count < int64(filter.MaxResults)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// scan walks day directories in the filter's time range and invokes fn for
// every decoded event that matches. fn returning false stops the scan.
func (s *BlobSink) scan(ctx context.Context, filter models.AuditEventFilter, fn func(*models.AuditEvent) bool) error {
	stop := fmt.Errorf("scan stopped")
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			if skip := s.skipPartition(path, filter); skip {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(entry.Name(), ".json.gz") {
			return nil
		}

		event, err := s.decode(path)
		if err != nil {
			s.log.Warn("skipping unreadable blob", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !matches(event, filter) {
			return nil
		}
		if !fn(event) {
			return stop
		}
		return nil
	})
	if err != nil && err != stop {
		return fmt.Errorf("scan blobs: %w", err)
	}
	return nil
}

// skipPartition prunes day directories entirely outside the filter range.
func (s *BlobSink) skipPartition(path string, filter models.AuditEventFilter) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." {
		return false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) != 3 {
		return false
	}
	day, err := time.Parse("2006/01/02", strings.Join(parts, "/"))
	if err != nil {
		return false
	}
	if filter.From != nil && day.Add(24*time.Hour).Before(filter.From.UTC()) {
		return true
	}
	if filter.To != nil && day.After(filter.To.UTC()) {
		return true
	}
	return false
}

// DeleteOlderThan purges day partitions entirely before the cutoff.
func (s *BlobSink) DeleteOlderThan(ctx context.Context, cutoff time.Time, retention models.RetentionCategory) (int64, error) {
	if retention != "" && retention != models.RetentionArchival {
		return 0, nil
	}
	var removed int64
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json.gz") {
			return nil
		}
		stamp, err := time.Parse("20060102-150405", entry.Name()[:15])
		if err != nil {
			return nil
		}
		if stamp.Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove expired blob: %w", err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("purge blobs: %w", err)
	}
	return removed, nil
}

func (s *BlobSink) encode(event *models.AuditEvent) ([]byte, error) {
	// Everything in this sink is archival storage. Record fan-out hands
	// events over while they are still OPERATIONAL, and the archive sweep
	// skips keys that already exist, so the label is normalized here.
	stored := event.Clone()
	stored.Retention = models.RetentionArchival

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal blob event: %w", err)
	}

	if s.compress {
		buf := &bytes.Buffer{}
		gz := gzip.NewWriter(buf)
		if _, err := gz.Write(raw); err != nil {
			return nil, fmt.Errorf("compress blob: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("flush blob compression: %w", err)
		}
		raw = buf.Bytes()
	}

	if s.cipher != nil {
		encrypted, err := s.cipher.Encrypt(raw)
		if err != nil {
			return nil, err
		}
		raw = encrypted
	}
	return raw, nil
}

func (s *BlobSink) decode(path string) (*models.AuditEvent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}

	if s.cipher != nil {
		raw, err = s.cipher.Decrypt(raw)
		if err != nil {
			return nil, err
		}
	}

	if s.compress {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("open blob compression: %w", err)
		}
		raw, err = io.ReadAll(gz)
		if closeErr := gz.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return nil, fmt.Errorf("decompress blob: %w", err)
		}
	}

	var event models.AuditEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("unmarshal blob event: %w", err)
	}
	return &event, nil
}
