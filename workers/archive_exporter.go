package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lore-governance-system/models"
	"lore-governance-system/utils"

	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ArchiveExporter periodically exports archived proposals (with their votes)
// to R2 as gzipped JSON and marks them exported. Exports are cold storage
// only; the rows stay queryable in the DB until a separate retention policy
// removes them.
type ArchiveExporter struct {
	DB       *gorm.DB
	Interval time.Duration
	Batch    int
}

func NewArchiveExporter(db *gorm.DB, interval time.Duration) *ArchiveExporter {
	return &ArchiveExporter{DB: db, Interval: interval, Batch: 100}
}

// Run blocks until ctx is cancelled, exporting one batch per tick.
func (w *ArchiveExporter) Run(ctx context.Context) {
	log.WithField("interval", w.Interval).Info("archive exporter started")
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("archive exporter stopped")
			return
		case <-ticker.C:
			if n, err := w.exportBatch(ctx); err != nil {
				log.WithError(err).Error("archive export batch failed")
			} else if n > 0 {
				log.WithField("exported", n).Info("archived proposals exported")
			}
		}
	}
}

type archiveRecord struct {
	Proposal models.Proposal `json:"proposal"`
	Votes    []models.Vote   `json:"votes"`
}

func (w *ArchiveExporter) exportBatch(ctx context.Context) (int, error) {
	var proposals []models.Proposal
	if err := w.DB.WithContext(ctx).
		Where("status = ? AND exported = ?", models.ProposalStatusArchived, false).
		Limit(w.Batch).
		Find(&proposals).Error; err != nil {
		return 0, err
	}

	exported := 0
	for _, p := range proposals {
		if err := w.exportOne(ctx, &p); err != nil {
			log.WithError(err).Warnf("export failed for proposal %s", p.ID)
			continue
		}
		exported++
	}
	return exported, nil
}

func (w *ArchiveExporter) exportOne(ctx context.Context, p *models.Proposal) error {
	var votes []models.Vote
	if err := w.DB.WithContext(ctx).
		Where("proposal_id = ?", p.ID).
		Order("cast_at ASC").
		Find(&votes).Error; err != nil {
		return err
	}

	payload, err := json.Marshal(archiveRecord{Proposal: *p, Votes: votes})
	if err != nil {
		return err
	}

	compressed, err := gzipBytes(payload)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("proposal-archive/%s/%s.json.gz",
		p.CreatedAt.Format("2006/01"), p.ID)
	if _, err := utils.UploadBytesToR2(ctx, key, compressed, "application/json", "gzip"); err != nil {
		return err
	}

	return w.DB.WithContext(ctx).Model(&models.Proposal{}).
		Where("id = ?", p.ID).
		Update("exported", true).Error
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
