package composer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/daily-trivia/internal/domain/entity"
	apperrors "github.com/yourusername/daily-trivia/internal/pkg/errors"
)

const statsCacheKey = "composer:stats"

// Composer управляет полным циклом составления викторины дня:
// claim даты → планирование распределения → отбор с эскалацией уровней
// ослабления → сборка и валидация шаблона → публикация → usage commit.
// Usage commit всегда строго последний: упавший прогон не трогает пул
// и безопасен для повтора.
type Composer struct {
	config    *Config
	deps      *Dependencies
	selector  *AntiRepeatSelector
	publisher *Publisher

	// Подменяется в тестах для воспроизводимых меток времени
	now func() time.Time
}

// NewComposer создает оркестратор составления.
// rng передается селектору; nil означает невоспроизводимый продакшен-источник.
func NewComposer(config *Config, deps *Dependencies, rng *rand.Rand) *Composer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Composer{
		config:    config,
		deps:      deps,
		selector:  NewAntiRepeatSelector(config, deps, rng),
		publisher: NewPublisher(deps.ArtifactStore),
		now:       time.Now,
	}
}

// selectionOutcome - внутренний итог фазы отбора
type selectionOutcome struct {
	themePlan entity.ThemePlan
	plan      PlanResult
	questions []entity.Question
	available map[string]int
}

// ComposeDailyQuiz выполняет полный прогон составления и публикации викторины
// на дату. override позволяет разово переопределить конфигурацию (nil - дефолт).
func (c *Composer) ComposeDailyQuiz(ctx context.Context, targetDate time.Time, mode string, override *Config) (*CompositionResult, error) {
	cfg := c.config
	if override != nil {
		cfg = override
	}
	if mode == "" {
		mode = cfg.DefaultMode
	}
	targetDate = dateOnly(targetDate)
	start := c.now()

	log.Printf("[Composer] Прогон составления за %s, режим %s", targetDate.Format("2006-01-02"), mode)

	// Единственный писатель на дату: claim захватывается до начала отбора,
	// гонка ручного и планового триггера решается на вставке записи
	if err := c.deps.DailyQuizRepo.ClaimDate(targetDate, start); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("composition for %s is already claimed: %w",
				targetDate.Format("2006-01-02"), err)
		}
		return nil, fmt.Errorf("failed to claim composition date: %w", err)
	}

	runLog := &entity.CompositionLog{TargetDate: targetDate, Mode: mode}
	// Журнал прогона пишется ровно один раз, независимо от исхода
	defer c.writeRunLog(runLog, start)

	outcome, err := c.runSelection(targetDate, mode, cfg, runLog)
	if err != nil {
		c.markFailed(runLog, err)
		c.releaseClaim(targetDate)
		return nil, err
	}

	quiz, created, err := c.quizForDate(targetDate, mode, outcome.themePlan, cfg, runLog)
	if err != nil {
		c.markFailed(runLog, err)
		c.releaseClaim(targetDate)
		return nil, err
	}

	version := quiz.Version + 1
	template, err := GenerateTemplate(quiz, version, outcome.questions, outcome.themePlan, c.now())
	if err != nil {
		err = fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		c.markFailed(runLog, err)
		c.releaseClaim(targetDate)
		return nil, err
	}

	if validation := ValidateTemplate(template); !validation.IsValid {
		err = fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(validation.Issues, "; "))
		c.markFailed(runLog, err)
		c.releaseClaim(targetDate)
		return nil, err
	}

	runLog.FinalSelection = buildFinalSelection(cfg, outcome.questions)

	// Состав сохраняется до публикации: при падении выгрузки retry-проход
	// пересоберет шаблон ровно из этого набора, без повторного отбора
	quiz.Status = entity.DailyQuizStatusComposed
	if created {
		err = c.deps.DailyQuizRepo.Create(quiz)
	} else {
		err = c.deps.DailyQuizRepo.Update(quiz)
	}
	if err != nil {
		err = fmt.Errorf("failed to persist daily quiz: %w", err)
		c.markFailed(runLog, err)
		c.releaseClaim(targetDate)
		return nil, err
	}
	if err := c.deps.DailyQuizRepo.ReplaceQuestionSet(quiz.ID, questionSet(quiz.ID, template, start)); err != nil {
		err = fmt.Errorf("failed to persist question set: %w", err)
		c.markFailed(runLog, err)
		c.releaseClaim(targetDate)
		return nil, err
	}

	url, _, err := c.publisher.Publish(ctx, template, targetDate, c.now())
	if err != nil {
		// Состав уже сохранен, claim остается терминальным:
		// публикацию повторит retry-проход, отбор не повторяется
		err = fmt.Errorf("%w: %v", apperrors.ErrPublish, err)
		c.markFailed(runLog, err)
		c.finishClaim(targetDate)
		return nil, err
	}

	quiz.Version = version
	quiz.TemplateURL = url
	quiz.Status = entity.DailyQuizStatusPublished
	if err := c.deps.DailyQuizRepo.Update(quiz); err != nil {
		err = fmt.Errorf("failed to mark quiz published: %w", err)
		c.markFailed(runLog, err)
		c.finishClaim(targetDate)
		return nil, err
	}

	// Usage commit - строго последний шаг: ровно тот набор вопросов,
	// что вошел в опубликованный шаблон, ровно один раз за публикацию
	ids := questionIDs(outcome.questions)
	if err := c.selector.CommitUsage(ids, start); err != nil {
		err = fmt.Errorf("published, but usage commit failed: %w", err)
		c.markFailed(runLog, err)
		c.finishClaim(targetDate)
		return nil, err
	}

	c.finishClaim(targetDate)

	log.Printf("[Composer] Викторина %s за %s опубликована: v%d, %d вопросов, %d предупреждений",
		quiz.ID, targetDate.Format("2006-01-02"), version, len(outcome.questions), len(runLog.Warnings))

	return &CompositionResult{
		DailyQuiz: quiz,
		Questions: outcome.questions,
		Template:  template,
		Log:       runLog,
	}, nil
}

// PreviewComposition выполняет то же вычисление, что и ComposeDailyQuiz,
// но без единого побочного эффекта: ни claim, ни персистентности,
// ни публикации, ни usage commit. Журнал возвращается, но не сохраняется.
func (c *Composer) PreviewComposition(targetDate time.Time, mode string, override *Config) (*CompositionResult, error) {
	cfg := c.config
	if override != nil {
		cfg = override
	}
	if mode == "" {
		mode = cfg.DefaultMode
	}
	targetDate = dateOnly(targetDate)
	start := c.now()

	runLog := &entity.CompositionLog{TargetDate: targetDate, Mode: mode}

	outcome, err := c.runSelection(targetDate, mode, cfg, runLog)
	if err != nil {
		return nil, err
	}

	quiz, _, err := c.quizForDate(targetDate, mode, outcome.themePlan, cfg, runLog)
	if err != nil {
		return nil, err
	}

	template, err := GenerateTemplate(quiz, quiz.Version+1, outcome.questions, outcome.themePlan, c.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	runLog.FinalSelection = buildFinalSelection(cfg, outcome.questions)
	runLog.DurationMs = c.now().Sub(start).Milliseconds()

	return &CompositionResult{
		DailyQuiz: quiz,
		Questions: outcome.questions,
		Template:  template,
		Log:       runLog,
	}, nil
}

// RetryUnpublished - периодический retry-проход: пересобирает и публикует
// шаблоны викторин, у которых состав есть, а артефакта нет.
// Отбор никогда не повторяется. Возвращает количество опубликованных.
func (c *Composer) RetryUnpublished(ctx context.Context) (int, error) {
	quizzes, err := c.deps.DailyQuizRepo.ListUnpublished(c.config.RetryBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unpublished quizzes: %w", err)
	}

	published := 0
	for i := range quizzes {
		quiz := &quizzes[i]
		if err := c.republish(ctx, quiz); err != nil {
			log.Printf("[Composer] Retry публикации %s (%s) не удался: %v",
				quiz.ID, quiz.QuizDate.Format("2006-01-02"), err)
			continue
		}
		published++
	}

	if len(quizzes) > 0 {
		log.Printf("[Composer] Retry-проход: опубликовано %d из %d", published, len(quizzes))
	}
	return published, nil
}

// republish пересобирает шаблон из сохраненного состава и публикует его
func (c *Composer) republish(ctx context.Context, quiz *entity.DailyQuiz) error {
	set, err := c.deps.DailyQuizRepo.GetQuestionSet(quiz.ID)
	if err != nil {
		return fmt.Errorf("failed to load question set: %w", err)
	}
	if len(set) == 0 {
		return fmt.Errorf("question set is empty for quiz %s", quiz.ID)
	}

	ids := make([]string, 0, len(set))
	for _, entry := range set {
		ids = append(ids, entry.QuestionID)
	}
	questions, err := c.deps.QuestionRepo.GetByIDs(ids)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}
	if len(questions) != len(set) {
		return fmt.Errorf("question set mismatch: journal has %d, pool returned %d", len(set), len(questions))
	}

	version := quiz.Version + 1
	template, err := GenerateTemplate(quiz, version, questions, quiz.ThemePlan, c.now())
	if err != nil {
		return err
	}
	if validation := ValidateTemplate(template); !validation.IsValid {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, strings.Join(validation.Issues, "; "))
	}

	url, _, err := c.publisher.Publish(ctx, template, quiz.QuizDate, c.now())
	if err != nil {
		return err
	}

	quiz.Version = version
	quiz.TemplateURL = url
	quiz.Status = entity.DailyQuizStatusPublished
	if err := c.deps.DailyQuizRepo.Update(quiz); err != nil {
		return fmt.Errorf("failed to mark quiz published: %w", err)
	}

	// Это первая успешная публикация данного состава (до сих пор статус был
	// composed), поэтому usage фиксируется здесь - и только здесь.
	// Перегенерация уже опубликованной викторины usage не трогает.
	if err := c.selector.CommitUsage(ids, c.now()); err != nil {
		log.Printf("[Composer] Викторина %s опубликована, но usage commit не удался: %v", quiz.ID, err)
	}
	return nil
}

// GetCompositionStats возвращает сводную статистику прогонов и пула,
// с коротким кешированием в Redis
func (c *Composer) GetCompositionStats() (*CompositionStats, error) {
	if c.deps.CacheRepo != nil {
		var cached CompositionStats
		if err := c.deps.CacheRepo.GetJSON(statsCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	logs, err := c.deps.LogRepo.ListRecent(30)
	if err != nil {
		return nil, fmt.Errorf("failed to load composition logs: %w", err)
	}
	total, selectable, byDifficulty, err := c.deps.QuestionRepo.PoolStats()
	if err != nil {
		return nil, fmt.Errorf("failed to load pool stats: %w", err)
	}

	failed := 0
	for _, l := range logs {
		if l.HasErrors {
			failed++
		}
	}

	stats := &CompositionStats{
		TotalRuns:         len(logs),
		FailedRuns:        failed,
		ErrorRate:         ErrorRate(logs),
		AverageDurationMs: AverageDurationMs(logs),
		AverageQuestions:  AverageQuestionCount(logs),
		PoolTotal:         total,
		PoolSelectable:    selectable,
		PoolByDifficulty:  byDifficulty,
	}
	if len(logs) > 0 {
		t := logs[0].CreatedAt
		stats.LastRunAt = &t
	}

	if c.deps.CacheRepo != nil {
		if err := c.deps.CacheRepo.SetJSON(statsCacheKey, stats, c.config.StatsCacheTTL); err != nil {
			log.Printf("[Composer] Не удалось закешировать статистику: %v", err)
		}
	}
	return stats, nil
}

// GetSystemHealth проверяет доступность внешних зависимостей движка
func (c *Composer) GetSystemHealth(ctx context.Context) SystemHealth {
	health := SystemHealth{
		Database: ComponentHealth{IsHealthy: true},
		Cache:    ComponentHealth{IsHealthy: true},
		Storage:  ComponentHealth{IsHealthy: true},
	}

	if _, _, _, err := c.deps.QuestionRepo.PoolStats(); err != nil {
		health.Database = ComponentHealth{IsHealthy: false, Message: err.Error()}
	}
	if c.deps.CacheRepo != nil {
		if err := c.deps.CacheRepo.Ping(); err != nil {
			health.Cache = ComponentHealth{IsHealthy: false, Message: err.Error()}
		}
	}
	if err := c.publisher.HealthCheck(ctx); err != nil {
		health.Storage = ComponentHealth{IsHealthy: false, Message: err.Error()}
	}

	health.IsHealthy = health.Database.IsHealthy && health.Cache.IsHealthy && health.Storage.IsHealthy
	return health
}

// runSelection выполняет фазу планирования и отбора: емкость пула,
// распределение с fallback, добор по сложностям с эскалацией уровней
func (c *Composer) runSelection(targetDate time.Time, mode string, cfg *Config, runLog *entity.CompositionLog) (*selectionOutcome, error) {
	themePlan := c.buildThemePlan(mode, targetDate)
	runLog.ThemePlan = themePlan

	// Емкость пула по сложностям на максимально ослабленном уровне и без
	// тематических ограничений: планировщику нужна полная вместимость
	available := make(map[string]int)
	for _, difficulty := range entity.Difficulties {
		spec := BuildFilter(SelectionCriteria{Difficulty: difficulty}, len(RelaxationSchedule), targetDate, cfg.OverexposureLimit)
		count, err := c.deps.QuestionRepo.CountPool(spec)
		runLog.DBQueries++
		if err != nil {
			return nil, fmt.Errorf("failed to count pool for %s: %w", difficulty, err)
		}
		available[difficulty] = int(count)
	}

	plan := DistributionWithFallbacks(cfg, available)
	runLog.Warnings = append(runLog.Warnings, plan.Warnings...)
	for _, warning := range plan.Warnings {
		log.Printf("[Composer] %s", warning)
	}

	if ok, issues := ValidateDistribution(plan.Distribution, available); !ok {
		return nil, fmt.Errorf("%w: распределение некорректно: %s",
			apperrors.ErrValidation, strings.Join(issues, "; "))
	}

	var chosen []entity.Question
	var chosenIDs []string
	var usedSubjects []string

	for _, difficulty := range entity.Difficulties {
		target := plan.Distribution.Get(difficulty)
		dlog := entity.DifficultySelectionLog{Difficulty: difficulty, Target: target}
		if target == 0 {
			runLog.SelectionProcess = append(runLog.SelectionProcess, dlog)
			continue
		}

		selected := 0
		for level := 0; level <= len(RelaxationSchedule) && selected < target; level++ {
			criteria := SelectionCriteria{
				Difficulty:         difficulty,
				ExcludeQuestionIDs: chosenIDs,
				PreferredThemes:    themePlan.PreferredThemes,
				SubjectDiversity:   usedSubjects,
			}
			// Разнообразие предметов - мягкое ограничение: с уровня 2 снимается,
			// иначе добор в тесном пуле может не состояться вовсе
			if level >= 2 {
				criteria.SubjectDiversity = nil
			}
			// Тематическое предпочтение снимается только на беспороговом уровне
			if level >= len(RelaxationSchedule) {
				criteria.PreferredThemes = nil
			}

			pool, err := c.selector.EligiblePool(criteria, level, targetDate)
			runLog.DBQueries++
			if err != nil {
				return nil, err
			}

			shortfall := target - selected
			attempt := entity.SelectionAttemptLog{RelaxationLevel: level, Attempted: shortfall}
			take := min(len(pool), shortfall)
			for i := 0; i < take; i++ {
				q := pool[i]
				chosen = append(chosen, q)
				chosenIDs = append(chosenIDs, q.ID)
				usedSubjects = append(usedSubjects, q.Subjects...)
			}
			attempt.Selected = take
			selected += take
			if take < shortfall {
				attempt.Issues = append(attempt.Issues,
					fmt.Sprintf("пул уровня %d дал %d из %d", level, take, shortfall))
			}
			dlog.Attempts = append(dlog.Attempts, attempt)
			dlog.RelaxationLevel = level
		}

		dlog.Selected = selected
		if selected < target {
			issue := fmt.Sprintf("цель %d по сложности %s не достигнута даже без порога: набрано %d",
				target, difficulty, selected)
			dlog.Issues = append(dlog.Issues, issue)
			runLog.Warnings = append(runLog.Warnings, issue)
		}
		runLog.SelectionProcess = append(runLog.SelectionProcess, dlog)
		log.Printf("[Composer] Сложность %s: выбрано %d из %d (дошли до уровня %d)",
			difficulty, selected, target, dlog.RelaxationLevel)
	}

	return &selectionOutcome{
		themePlan: themePlan,
		plan:      plan,
		questions: chosen,
		available: available,
	}, nil
}

// buildThemePlan строит тематическую конфигурацию дня по режиму
func (c *Composer) buildThemePlan(mode string, targetDate time.Time) entity.ThemePlan {
	plan := entity.ThemePlan{Mode: mode}
	switch mode {
	case entity.QuizModeSpotlight:
		// Детерминированная ротация тем по дню года: одна и та же дата
		// всегда дает одну и ту же тему
		if len(c.config.SpotlightThemes) > 0 {
			theme := c.config.SpotlightThemes[targetDate.YearDay()%len(c.config.SpotlightThemes)]
			plan.PreferredThemes = []string{theme}
			plan.ThemeWeights = map[string]float64{theme: 1}
		}
	case entity.QuizModeEvent:
		plan.EventTag = c.config.EventTag
		if c.config.EventTag != "" {
			plan.PreferredThemes = []string{c.config.EventTag}
		}
	}
	return plan
}

// quizForDate возвращает существующую викторину на дату или создает
// несохраненную новую (created=true)
func (c *Composer) quizForDate(targetDate time.Time, mode string, themePlan entity.ThemePlan, cfg *Config, runLog *entity.CompositionLog) (*entity.DailyQuiz, bool, error) {
	quiz, err := c.deps.DailyQuizRepo.GetByDate(targetDate)
	runLog.DBQueries++
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, fmt.Errorf("failed to load daily quiz: %w", err)
		}
		quiz = &entity.DailyQuiz{
			ID:        uuid.NewString(),
			QuizDate:  targetDate,
			DropAtUTC: targetDate.Add(time.Duration(cfg.DropHourUTC) * time.Hour),
			Mode:      mode,
			Status:    entity.DailyQuizStatusComposing,
			ThemePlan: themePlan,
		}
		return quiz, true, nil
	}
	quiz.Mode = mode
	quiz.ThemePlan = themePlan
	return quiz, false, nil
}

// writeRunLog финализирует и сохраняет журнал прогона
func (c *Composer) writeRunLog(runLog *entity.CompositionLog, start time.Time) {
	runLog.DurationMs = c.now().Sub(start).Milliseconds()
	if err := c.deps.LogRepo.Create(runLog); err != nil {
		log.Printf("[Composer] Не удалось сохранить журнал прогона за %s: %v",
			runLog.TargetDate.Format("2006-01-02"), err)
	}
}

// markFailed помечает журнал прогона ошибочным
func (c *Composer) markFailed(runLog *entity.CompositionLog, err error) {
	runLog.HasErrors = true
	runLog.ErrorMessage = err.Error()
	log.Printf("[Composer] Прогон за %s завершился ошибкой: %v",
		runLog.TargetDate.Format("2006-01-02"), err)
}

// releaseClaim снимает claim после неудачи до сохранения состава:
// дату можно пробовать заново
func (c *Composer) releaseClaim(targetDate time.Time) {
	if err := c.deps.DailyQuizRepo.ReleaseClaim(targetDate); err != nil {
		log.Printf("[Composer] Не удалось снять claim за %s: %v", targetDate.Format("2006-01-02"), err)
	}
}

// finishClaim помечает claim терминальным: состав зафиксирован,
// повторные триггеры на эту дату отсекаются
func (c *Composer) finishClaim(targetDate time.Time) {
	if err := c.deps.DailyQuizRepo.FinishClaim(targetDate); err != nil {
		log.Printf("[Composer] Не удалось завершить claim за %s: %v", targetDate.Format("2006-01-02"), err)
	}
}

// buildFinalSelection собирает сводку итогового состава для журнала
func buildFinalSelection(cfg *Config, questions []entity.Question) entity.FinalSelectionLog {
	return entity.FinalSelectionLog{
		TotalQuestions:     len(questions),
		TargetDistribution: TargetDistribution(cfg.TargetQuestionCount).ToMap(),
		ActualDistribution: DifficultyCounts(questions),
		ThemeDistribution:  ThemeCounts(questions),
		AverageExposure:    AverageExposure(questions),
		OldestLastUsedAt:   OldestLastUsed(questions),
		NewestLastUsedAt:   NewestLastUsed(questions),
	}
}

// questionSet строит журнал состава по порядку вопросов в шаблоне
func questionSet(quizID string, template *QuizTemplate, at time.Time) []entity.DailyQuizQuestion {
	set := make([]entity.DailyQuizQuestion, 0, len(template.Questions))
	for _, q := range template.Questions {
		set = append(set, entity.DailyQuizQuestion{
			DailyQuizID: quizID,
			QuestionID:  q.QID,
			OrderIndex:  q.OrderIndex,
			Difficulty:  q.Payload.Difficulty,
			SelectedAt:  at,
		})
	}
	return set
}

// questionIDs возвращает список id вопросов
func questionIDs(questions []entity.Question) []string {
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// dateOnly нормализует дату к полуночи UTC
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
