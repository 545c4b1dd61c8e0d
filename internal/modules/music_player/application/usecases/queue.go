package usecases

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

const DefaultPageSize = 10

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID  snowflake.ID
	Page     int // 1-indexed page number
	PageSize int // Items per page (optional, defaults to the service page size)
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	Mode          domain.PlaybackMode
	Current       *domain.NowPlayingSnapshot
	RadioURL      string
	Tracks        []*domain.Track
	StartPosition int // 1-based queue position of Tracks[0]
	TotalTracks   int
	TotalDuration time.Duration
	CurrentPage   int
	TotalPages    int
}

// QueueService handles queue listing.
type QueueService struct {
	sessions SessionProvider
	pageSize int
}

// NewQueueService creates a new QueueService.
func NewQueueService(sessions SessionProvider, pageSize int) *QueueService {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &QueueService{
		sessions: sessions,
		pageSize: pageSize,
	}
}

// List returns one page of the upcoming tracks. Out-of-range pages are clamped.
func (q *QueueService) List(ctx context.Context, input QueueListInput) (*QueueListOutput, error) {
	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = q.pageSize
	}

	s, ok := q.sessions.Lookup(input.GuildID)
	if !ok {
		return &QueueListOutput{CurrentPage: 1, TotalPages: 1}, nil
	}

	status, err := s.Status(ctx)
	if err != nil {
		return nil, err
	}

	page, totalPages, start, end := paginate(len(status.Queue), input.Page, pageSize)

	return &QueueListOutput{
		Mode:          status.Mode,
		Current:       status.Current,
		RadioURL:      status.RadioURL,
		Tracks:        status.Queue[start:end],
		StartPosition: start + 1,
		TotalTracks:   len(status.Queue),
		TotalDuration: status.QueueDuration,
		CurrentPage:   page,
		TotalPages:    totalPages,
	}, nil
}

// paginate clamps page into range and returns the slice bounds for that page.
func paginate(total, page, pageSize int) (clampedPage, totalPages, start, end int) {
	totalPages = (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	clampedPage = min(max(page, 1), totalPages)
	start = min((clampedPage-1)*pageSize, total)
	end = min(start+pageSize, total)
	return clampedPage, totalPages, start, end
}
