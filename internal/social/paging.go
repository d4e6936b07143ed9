package social

import (
	"strconv"

	"photogram/internal/apperr"
	"photogram/internal/repository"
	"photogram/internal/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	MaxPage      = 1_000_000
)

type PageRequest struct {
	Page  int `json:"page" validate:"gte=1,lte=1000000"`
	Limit int `json:"limit" validate:"gte=1,lte=100"`
}

// ParsePage lee page y limit de la query; vacíos toman los valores por defecto.
func ParsePage(page, limit string) (PageRequest, error) {
	p := PageRequest{Page: DefaultPage, Limit: DefaultLimit}
	var err error
	if page != "" {
		if p.Page, err = strconv.Atoi(page); err != nil {
			return p, apperr.Validation("page must be a number")
		}
	}
	if limit != "" {
		if p.Limit, err = strconv.Atoi(limit); err != nil {
			return p, apperr.Validation("limit must be a number")
		}
	}
	if err := validation.Struct(&p); err != nil {
		return p, err
	}
	return p, nil
}

func (p PageRequest) window() repository.Page {
	return repository.Page{Offset: (p.Page - 1) * p.Limit, Limit: p.Limit}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
