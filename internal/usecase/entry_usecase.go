package usecase

import (
	"context"
	"fmt"

	"github.com/finpost/ledger/internal/domain"
)

// EntryUseCase handles entry queries.
type EntryUseCase struct {
	entryRepo EntryRepository
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(entryRepo EntryRepository) *EntryUseCase {
	return &EntryUseCase{
		entryRepo: entryRepo,
	}
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page         int
	PageSize     int
	TotalPages   int
	TotalEntries int64
}

// EntryPage is a filtered, paginated listing of entries.
type EntryPage struct {
	Entries    []*domain.Entry
	Pagination Pagination
}

// ListEntries lists entries matching the filter.
func (uc *EntryUseCase) ListEntries(ctx context.Context, filter EntryFilter) (*EntryPage, error) {
	filter.Page, filter.PageSize = domain.ValidatePagination(filter.Page, filter.PageSize)

	entries, total, err := uc.entryRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int(total / int64(filter.PageSize))
	if total%int64(filter.PageSize) != 0 {
		totalPages++
	}

	return &EntryPage{
		Entries: entries,
		Pagination: Pagination{
			Page:         filter.Page,
			PageSize:     filter.PageSize,
			TotalPages:   totalPages,
			TotalEntries: total,
		},
	}, nil
}

// GetEntry retrieves an entry by ID.
func (uc *EntryUseCase) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	return uc.entryRepo.GetByID(ctx, id)
}

// GetEntryGroup retrieves all entries of a group, ordered by creation.
func (uc *EntryUseCase) GetEntryGroup(ctx context.Context, groupID string) ([]*domain.Entry, error) {
	entries, err := uc.entryRepo.GetByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntryGroupNotFound, groupID)
	}

	return entries, nil
}
