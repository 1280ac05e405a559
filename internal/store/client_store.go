package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"abonent-crm/models"
)

// GormClientStore - реализация ClientStore поверх PostgreSQL.
type GormClientStore struct {
	db *gorm.DB
}

func NewClientStore(db *gorm.DB) *GormClientStore {
	return &GormClientStore{db: db}
}

func (s *GormClientStore) Get(id uint) (*models.Client, error) {
	var client models.Client
	if err := s.db.Preload("Tariff").Preload("Detail").First(&client, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (s *GormClientStore) FindByAccount(accountNumber string) (*models.Client, error) {
	var client models.Client
	if err := s.db.Where("account_number = ?", accountNumber).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (s *GormClientStore) List(f ClientFilter) ([]models.Client, int64, error) {
	query := s.db.Model(&models.Client{})

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Archived != nil {
		query = query.Where("is_archived = ?", *f.Archived)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where(
			"LOWER(last_name) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(account_number) LIKE ? OR LOWER(address) LIKE ? OR phone LIKE ?",
			pattern, pattern, pattern, pattern, pattern)
	}

	var totalRows int64
	if err := query.Count(&totalRows).Error; err != nil {
		return nil, 0, err
	}

	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var clients []models.Client
	if err := query.Order("last_name, first_name").Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, totalRows, nil
}

func (s *GormClientStore) Create(c *models.Client) error {
	return s.db.Create(c).Error
}

func (s *GormClientStore) Update(c *models.Client) error {
	return s.db.Save(c).Error
}

func (s *GormClientStore) Delete(id uint) error {
	res := s.db.Delete(&models.Client{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
