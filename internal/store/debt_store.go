package store

import (
	"errors"

	"gorm.io/gorm"

	"abonent-crm/models"
)

// GormDebtStore - реализация DebtStore поверх PostgreSQL.
type GormDebtStore struct {
	db *gorm.DB
}

func NewDebtStore(db *gorm.DB) *GormDebtStore {
	return &GormDebtStore{db: db}
}

func (s *GormDebtStore) Get(id uint) (*models.MonthlyDebtRecord, error) {
	var rec models.MonthlyDebtRecord
	if err := s.db.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *GormDebtStore) ListByClient(clientID uint) ([]models.MonthlyDebtRecord, error) {
	var recs []models.MonthlyDebtRecord
	err := s.db.Where("client_id = ?", clientID).Order("period").Find(&recs).Error
	return recs, err
}

func (s *GormDebtStore) ListByYear(year int) ([]models.MonthlyDebtRecord, error) {
	var recs []models.MonthlyDebtRecord
	err := s.db.Where("year = ?", year).Order("client_id, period").Find(&recs).Error
	return recs, err
}

func (s *GormDebtStore) Create(r *models.MonthlyDebtRecord) error {
	return s.db.Create(r).Error
}

func (s *GormDebtStore) Update(r *models.MonthlyDebtRecord) error {
	return s.db.Save(r).Error
}

func (s *GormDebtStore) Delete(id uint) error {
	res := s.db.Delete(&models.MonthlyDebtRecord{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *GormDebtStore) DeleteByClient(clientID uint) error {
	return s.db.Where("client_id = ?", clientID).Delete(&models.MonthlyDebtRecord{}).Error
}

func (s *GormDebtStore) BulkCreate(rs []models.MonthlyDebtRecord) error {
	if len(rs) == 0 {
		return nil
	}
	return s.db.Create(&rs).Error
}
