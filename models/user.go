package models

import "gorm.io/gorm"

// User - учетная запись сотрудника (оператор, коллектор, администратор).
type User struct {
	gorm.Model
	Login        string `json:"login" gorm:"unique;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	FullName     string `json:"fullName"`
	Role         string `json:"role" gorm:"default:operator"` // operator | collector | admin
}
