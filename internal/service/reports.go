package service

import (
	"context"

	"github.com/mmeshcher/bistro-boss/internal/model"
)

// AdminStats возвращает сводку для панели администратора.
func (s *Service) AdminStats(ctx context.Context) (model.AdminStats, error) {
	return s.repo.AdminStats(ctx)
}

// OrderStats возвращает продажи по категориям меню. Пустой результат: пустой список, не nil.
func (s *Service) OrderStats(ctx context.Context) ([]model.CategoryStat, error) {
	stats, err := s.repo.CategoryStats(ctx)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []model.CategoryStat{}
	}
	return stats, nil
}
