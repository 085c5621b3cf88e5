package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func pageFrom(c *fiber.Ctx) page {
	p := page{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", defaultPageSize)}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > maxPageSize {
		p.Limit = defaultPageSize
	}
	return p
}

func (p page) scope(db *gorm.DB) *gorm.DB {
	return db.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}

func (p page) meta(total int64) fiber.Map {
	return fiber.Map{
		"page":  p.Page,
		"limit": p.Limit,
		"total": total,
	}
}
