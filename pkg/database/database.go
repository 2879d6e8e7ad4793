package database

import (
	"fmt"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
		cfg.Database.Charset,
		cfg.Database.ParseTime,
	)

	// TranslateError 让重复键错误可以用 errors.Is(err, gorm.ErrDuplicatedKey) 判断，
	// AttemptRepository 依赖它实现 find-or-create 的原子性
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Info),
		TranslateError: true,
	})

	if err != nil {
		return nil, err
	}

	log.Println("Database connection established")

	if shouldMigrate(cfg.Server.Mode, cfg.ForceMigrate) {
		err = db.AutoMigrate(
			&model.User{},
			&model.Course{},
			&model.Enrollment{},
			&model.Test{},
			&model.Question{},
			&model.AnswerOption{},
			&model.Attempt{},
			&model.AttemptAnswer{},
		)

		if err != nil {
			return nil, err
		}

		log.Println("Database migration completed")
	}

	return db, nil
}

// shouldMigrate release 模式下表结构由 --migrate 显式触发，其他模式启动即迁移
func shouldMigrate(mode string, force bool) bool {
	if force {
		return true
	}
	return mode != "release"
}
