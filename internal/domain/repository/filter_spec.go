package repository

import "time"

// FilterSpec - типизированное описание фильтра пула вопросов.
// Политика отбора (анти-повтор, темы, переэкспозиция) строит FilterSpec
// чистой функцией, а адаптер хранилища переводит его в язык запросов
// конкретной СУБД. Политика тестируется без базы.
type FilterSpec struct {
	// Difficulty - точное совпадение сложности (easy|medium|hard)
	Difficulty string

	// ExcludeIDs - вопросы, уже выбранные в текущем прогоне
	ExcludeIDs []string

	// MinDaysSinceUsed - день-порог анти-повтора: вопрос допускается, если
	// с последнего показа прошло не меньше этого числа дней. 0 - без порога.
	MinDaysSinceUsed int

	// AsOf - опорная дата для окна анти-повтора (обычно дата викторины)
	AsOf time.Time

	// PreferredThemes - если не пусто, вопрос должен затрагивать хотя бы одну тему
	PreferredThemes []string

	// ExcludeSubjects - вопросы, пересекающиеся с этими предметами, исключаются
	// (поддержка разнообразия предметов внутри одной викторины)
	ExcludeSubjects []string

	// MaxExposureCount - если задан, отсекает переэкспонированные вопросы.
	// Применяется только на самом строгом уровне ослабления.
	MaxExposureCount *int

	// Limit - максимальный размер выборки (0 - без ограничения)
	Limit int
}
