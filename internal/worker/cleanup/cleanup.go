// Package cleanup は期限切れワンタイムコードの定期削除ジョブを提供する。
// otp_storageはメールアドレスと種別ごとに1行だが、使われなかったコードは残り続けるため、
// 期限切れまたは使用済みの行を定期的に削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Purger は期限切れのコードを削除し、削除件数を返す。*otp.Service が実装する。
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// DefaultInterval はジョブの既定の実行間隔。
const DefaultInterval = time.Hour

// CleanupJob は期限切れワンタイムコードの削除ジョブ。
// 削除は冪等で、対象がない場合もエラーにならない。
type CleanupJob struct {
	purger Purger
	logger *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(purger Purger, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		purger: purger,
		logger: logger,
	}
}

// Run は期限切れまたは使用済みのコードを1回削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error("OTPクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("OTPクリーンアップの実行に失敗: %w", err)
	}

	j.logger.Info("OTPクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回実行し、以降はinterval毎に実行する。
// ctxがキャンセルされるまでブロックする。個々の実行の失敗はログに残して継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("OTPクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
