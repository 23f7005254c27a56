package service

import (
	"errors"

	"github.com/Freeeeeet/tutorconnect/internal/apperror"
)

// storageErr оставляет типизированные ошибки как есть, остальные превращает в ошибку хранилища
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Persistence(err)
}

func forbidden(message string) error {
	return apperror.New(apperror.KindForbidden, message)
}

func notFound(message string) error {
	return apperror.New(apperror.KindNotFound, message)
}

func validation(message string) error {
	return apperror.New(apperror.KindValidation, message)
}
