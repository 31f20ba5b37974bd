package domain

import "errors"

// Базовые ошибки домена. На HTTP-границе разворачиваются через errors.Is.
var (
	// ErrUserNotFound — пользователь не существует.
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrEmailTaken — e-mail уже зарегистрирован.
	ErrEmailTaken = errors.New("e-mail уже занят")
	// ErrNotFound — запись не существует или недоступна вызывающему.
	ErrNotFound = errors.New("запись не найдена")
	// ErrForbidden — авторизация пройдена, но доступ к ресурсу запрещён.
	ErrForbidden = errors.New("доступ запрещён")
	// ErrTranslationUnavailable — все провайдеры перевода завершились ошибкой.
	ErrTranslationUnavailable = errors.New("все сервисы перевода недоступны")
	// ErrSentimentUnavailable — обе модели анализа тональности недоступны.
	ErrSentimentUnavailable = errors.New("сервисы анализа тональности недоступны")
	// ErrProviderNotConfigured — у провайдера нет обязательных реквизитов.
	// Такой провайдер отваливается сразу, не расходуя таймаут.
	ErrProviderNotConfigured = errors.New("провайдер не сконфигурирован")
)
