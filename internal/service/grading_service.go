package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/pkg/database"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
	"github.com/noah-isme/course-registrar/pkg/export"
)

type assessmentRepository interface {
	SumWeights(ctx context.Context, tx *sqlx.Tx, sectionID string) (float64, error)
	Create(ctx context.Context, tx *sqlx.Tx, assessment *models.Assessment) error
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.Assessment, error)
	Delete(ctx context.Context, id string) error
}

type gradeRepository interface {
	Upsert(ctx context.Context, tx *sqlx.Tx, grade *models.Grade) error
	ListBySection(ctx context.Context, sectionID string) ([]models.Grade, error)
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error)
}

type gradingSectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error)
}

type gradingEnrollmentReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type gradebookRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// AssessmentRequest describes a new graded component of a section.
type AssessmentRequest struct {
	Title     string     `json:"title" validate:"required,max=128"`
	Weight    float64    `json:"weight"`
	FullScore float64    `json:"full_score"`
	DueAt     *time.Time `json:"due_at,omitempty"`
}

// GradebookExport is a rendered gradebook file.
type GradebookExport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// GradingService manages assessments, scores and weighted totals.
type GradingService struct {
	tx          txProvider
	assessments assessmentRepository
	grades      gradeRepository
	sections    gradingSectionReader
	enrollments gradingEnrollmentReader
	renderers   map[string]gradebookRenderer
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradingService constructs GradingService with CSV and PDF gradebook renderers.
func NewGradingService(
	tx txProvider,
	assessments assessmentRepository,
	grades gradeRepository,
	sections gradingSectionReader,
	enrollments gradingEnrollmentReader,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *GradingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{
		tx:          tx,
		assessments: assessments,
		grades:      grades,
		sections:    sections,
		enrollments: enrollments,
		renderers: map[string]gradebookRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// AddAssessment creates an assessment. The section row stays locked while the
// existing weights are summed, so concurrent additions cannot overshoot 1.
func (s *GradingService) AddAssessment(ctx context.Context, actor *models.Identity, sectionID string, req AssessmentRequest) (result *models.Assessment, err error) {
	if err := Authorize(actor, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	if math.IsNaN(req.Weight) || req.Weight <= 0 || req.Weight > 1 {
		return nil, validationError("weight must be within (0, 1]")
	}
	if math.IsNaN(req.FullScore) || math.IsInf(req.FullScore, 0) || req.FullScore <= 0 {
		return nil, validationError("full_score must be greater than 0")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, internalError(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	section, err := s.sections.GetForUpdate(ctx, tx, sectionID)
	if err != nil {
		return nil, lookupError(err, "section not found", "failed to load section")
	}
	if err = authorizeSection(actor, section); err != nil {
		return nil, err
	}

	used, err := s.assessments.SumWeights(ctx, tx, section.ID)
	if err != nil {
		return nil, internalError(err, "failed to sum assessment weights")
	}
	if used+req.Weight > 1+models.WeightEpsilon {
		return nil, appErrors.WithDetails(appErrors.ErrWeightBudgetExceeded,
			fmt.Sprintf("assessment weights would total %.4g, the limit is 1", used+req.Weight),
			map[string]float64{"current_total": used, "requested": req.Weight})
	}

	assessment := &models.Assessment{
		SectionID: section.ID,
		Title:     req.Title,
		Weight:    req.Weight,
		FullScore: req.FullScore,
		DueAt:     req.DueAt,
	}
	if err = s.assessments.Create(ctx, tx, assessment); err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrDuplicateTitle, "assessment title already exists in this section")
		}
		return nil, internalError(err, "failed to create assessment")
	}
	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit assessment")
	}

	s.logger.Info("assessment created",
		zap.String("assessment_id", assessment.ID),
		zap.String("section_id", section.ID),
		zap.Float64("weight", assessment.Weight),
		zap.String("actor", actor.UserID),
	)
	return assessment, nil
}

// ListAssessments returns a section's assessments with their weight total.
func (s *GradingService) ListAssessments(ctx context.Context, actor *models.Identity, sectionID string) (*models.AssessmentList, error) {
	if _, err := s.authorizedSection(ctx, actor, sectionID); err != nil {
		return nil, err
	}
	items, err := s.assessments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to list assessments")
	}
	list := &models.AssessmentList{SectionID: sectionID, Items: items}
	for _, a := range items {
		list.TotalWeight += a.Weight
	}
	return list, nil
}

// DeleteAssessment removes an assessment together with its grades.
func (s *GradingService) DeleteAssessment(ctx context.Context, actor *models.Identity, assessmentID string) error {
	if err := Authorize(actor, models.RoleAdmin, models.RoleTeacher); err != nil {
		return err
	}
	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return lookupError(err, "assessment not found", "failed to load assessment")
	}
	if _, err := s.authorizedSection(ctx, actor, assessment.SectionID); err != nil {
		return err
	}
	if err := s.assessments.Delete(ctx, assessment.ID); err != nil {
		return lookupError(err, "assessment not found", "failed to delete assessment")
	}
	s.logger.Info("assessment deleted", zap.String("assessment_id", assessment.ID), zap.String("actor", actor.UserID))
	return nil
}

// RecordScores upserts a batch of scores for one section in one transaction.
// Blank cells are skipped and keep any prior score. Cells that do not parse
// as a finite number, or that name an enrollment or assessment outside the
// section, are skipped and reported as warnings. Saved counts distinct
// (enrollment, assessment) pairs.
func (s *GradingService) RecordScores(ctx context.Context, actor *models.Identity, sectionID string, entries []models.ScoreEntry) (*models.ScoreRecordResult, error) {
	if _, err := s.authorizedSection(ctx, actor, sectionID); err != nil {
		return nil, err
	}

	assessments, err := s.assessments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to list assessments")
	}
	enrollments, err := s.enrollments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	knownAssessments := make(map[string]struct{}, len(assessments))
	for _, a := range assessments {
		knownAssessments[a.ID] = struct{}{}
	}
	knownEnrollments := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		knownEnrollments[e.ID] = struct{}{}
	}

	result := &models.ScoreRecordResult{Warnings: []models.ScoreWarning{}}
	var pending []models.Grade
	pendingIndex := map[string]int{}
	for i, entry := range entries {
		raw := strings.TrimSpace(string(entry.Raw))
		if raw == "" {
			result.Skipped++
			continue
		}
		warn := func(message string) {
			result.Warnings = append(result.Warnings, models.ScoreWarning{
				Index:        i,
				EnrollmentID: entry.EnrollmentID,
				AssessmentID: entry.AssessmentID,
				Raw:          raw,
				Message:      message,
			})
		}
		if _, ok := knownEnrollments[entry.EnrollmentID]; !ok {
			warn("enrollment does not belong to this section")
			continue
		}
		if _, ok := knownAssessments[entry.AssessmentID]; !ok {
			warn("assessment does not belong to this section")
			continue
		}
		score, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			warn("score is not a number")
			continue
		}
		grade := models.Grade{EnrollmentID: entry.EnrollmentID, AssessmentID: entry.AssessmentID, Score: score}
		// a repeated cell overwrites the earlier one in the same batch
		key := entry.EnrollmentID + "/" + entry.AssessmentID
		if idx, seen := pendingIndex[key]; seen {
			pending[idx] = grade
			continue
		}
		pendingIndex[key] = len(pending)
		pending = append(pending, grade)
	}

	if len(pending) > 0 {
		tx, err := s.tx.BeginTxx(ctx, nil)
		if err != nil {
			return nil, internalError(err, "failed to start transaction")
		}
		for i := range pending {
			if err := s.grades.Upsert(ctx, tx, &pending[i]); err != nil {
				_ = tx.Rollback()
				return nil, internalError(err, "failed to save score")
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, internalError(err, "failed to commit scores")
		}
	}
	result.Saved = len(pending)

	s.metrics.RecordScores(result.Saved, result.Skipped+len(result.Warnings))
	s.logger.Info("scores recorded",
		zap.String("section_id", sectionID),
		zap.Int("saved", result.Saved),
		zap.Int("skipped", result.Skipped),
		zap.Int("warnings", len(result.Warnings)),
		zap.String("actor", actor.UserID),
	)
	return result, nil
}

// ComputeTotal returns the weighted total percent of an enrollment. Only the
// enrolled student, the section's teacher and admins may read it.
func (s *GradingService) ComputeTotal(ctx context.Context, actor *models.Identity, enrollmentID string) (float64, error) {
	if err := Authorize(actor, models.RoleAdmin, models.RoleTeacher, models.RoleStudent); err != nil {
		return 0, err
	}
	enrollment, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		return 0, lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	switch actor.Role {
	case models.RoleStudent:
		if enrollment.StudentID != actor.StudentID {
			return 0, appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
		}
	case models.RoleTeacher:
		if enrollment.TeacherID != actor.TeacherID {
			return 0, appErrors.Clone(appErrors.ErrForbidden, "section is taught by another teacher")
		}
	}

	report, err := s.report(ctx, *enrollment)
	if err != nil {
		return 0, err
	}
	return report.TotalPercent, nil
}

// MyGrades returns one report per enrollment of the calling student.
func (s *GradingService) MyGrades(ctx context.Context, actor *models.Identity) ([]models.GradeReport, error) {
	if err := Authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	studentID, err := studentOf(actor)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	reports := make([]models.GradeReport, 0, len(enrollments))
	for _, enrollment := range enrollments {
		report, err := s.report(ctx, enrollment)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func (s *GradingService) report(ctx context.Context, enrollment models.EnrollmentDetail) (*models.GradeReport, error) {
	assessments, err := s.assessments.ListBySection(ctx, enrollment.SectionID)
	if err != nil {
		return nil, internalError(err, "failed to list assessments")
	}
	grades, err := s.grades.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, internalError(err, "failed to list grades")
	}
	scores := make(map[string]float64, len(grades))
	for _, g := range grades {
		scores[g.AssessmentID] = g.Score
	}

	lines := make([]models.GradeLine, 0, len(assessments))
	for _, a := range assessments {
		line := models.GradeLine{AssessmentID: a.ID, Title: a.Title, Weight: a.Weight, FullScore: a.FullScore}
		if score, ok := scores[a.ID]; ok {
			score := score
			line.Score = &score
		}
		lines = append(lines, line)
	}
	return &models.GradeReport{Enrollment: enrollment, Lines: lines, TotalPercent: weightedTotal(assessments, scores)}, nil
}

// Gradebook returns the section's enrollments by assessments score matrix.
func (s *GradingService) Gradebook(ctx context.Context, actor *models.Identity, sectionID string) (*models.Gradebook, error) {
	if _, err := s.authorizedSection(ctx, actor, sectionID); err != nil {
		return nil, err
	}
	detail, err := s.sections.FindDetailByID(ctx, sectionID)
	if err != nil {
		return nil, lookupError(err, "section not found", "failed to load section")
	}
	assessments, err := s.assessments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to list assessments")
	}
	enrollments, err := s.enrollments.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	grades, err := s.grades.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, internalError(err, "failed to list grades")
	}

	byEnrollment := make(map[string]map[string]float64, len(enrollments))
	for _, g := range grades {
		if byEnrollment[g.EnrollmentID] == nil {
			byEnrollment[g.EnrollmentID] = map[string]float64{}
		}
		byEnrollment[g.EnrollmentID][g.AssessmentID] = g.Score
	}

	book := &models.Gradebook{Section: *detail, Assessments: assessments, Rows: make([]models.GradebookRow, 0, len(enrollments))}
	for _, e := range enrollments {
		scores := byEnrollment[e.ID]
		if scores == nil {
			scores = map[string]float64{}
		}
		book.Rows = append(book.Rows, models.GradebookRow{
			EnrollmentID: e.ID,
			StudentID:    e.StudentID,
			StudentNo:    e.StudentNo,
			StudentName:  e.StudentName,
			Scores:       scores,
			TotalPercent: weightedTotal(assessments, scores),
		})
	}
	return book, nil
}

// ExportGradebook renders the gradebook as csv or pdf.
func (s *GradingService) ExportGradebook(ctx context.Context, actor *models.Identity, sectionID, format string) (*GradebookExport, error) {
	book, err := s.Gradebook(ctx, actor, sectionID)
	if err != nil {
		return nil, err
	}
	renderer, ok := s.renderers[strings.ToLower(format)]
	if !ok {
		return nil, validationError("format must be csv or pdf")
	}
	content, err := renderer.Render(gradebookDataset(book))
	if err != nil {
		return nil, internalError(err, "failed to render gradebook")
	}
	return &GradebookExport{
		Filename:    fmt.Sprintf("gradebook-%s-%s.%s", book.Section.CourseCode, book.Section.Term, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Content:     content,
	}, nil
}

func gradebookDataset(book *models.Gradebook) export.Dataset {
	headers := []string{"Student No", "Name"}
	for _, a := range book.Assessments {
		headers = append(headers, fmt.Sprintf("%s (%s%%)", a.Title, formatNumber(math.Round(a.Weight*1e4)/100)))
	}
	headers = append(headers, "Total %")

	rows := make([][]string, 0, len(book.Rows))
	for _, r := range book.Rows {
		row := []string{r.StudentNo, r.StudentName}
		for _, a := range book.Assessments {
			cell := ""
			if score, ok := r.Scores[a.ID]; ok {
				cell = formatNumber(score)
			}
			row = append(row, cell)
		}
		row = append(row, strconv.FormatFloat(r.TotalPercent, 'f', 2, 64))
		rows = append(rows, row)
	}
	return export.Dataset{
		Title:    fmt.Sprintf("%s %s", book.Section.CourseCode, book.Section.CourseName),
		Subtitle: fmt.Sprintf("Term %s, taught by %s", book.Section.Term, book.Section.TeacherName),
		Headers:  headers,
		Rows:     rows,
	}
}

// authorizedSection loads a section the actor may grade.
func (s *GradingService) authorizedSection(ctx context.Context, actor *models.Identity, sectionID string) (*models.Section, error) {
	if err := Authorize(actor, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		return nil, lookupError(err, "section not found", "failed to load section")
	}
	if err := authorizeSection(actor, section); err != nil {
		return nil, err
	}
	return section, nil
}

// weightedTotal sums score/full_score*weight over graded assessments and
// returns it as a percent rounded to two decimals.
func weightedTotal(assessments []models.Assessment, scores map[string]float64) float64 {
	var total float64
	for _, a := range assessments {
		score, ok := scores[a.ID]
		if !ok || a.FullScore <= 0 {
			continue
		}
		total += score / a.FullScore * a.Weight
	}
	return roundPercent(total * 100)
}

// roundPercent rounds v to two decimals from its exact binary value, with
// exact ties going to the even digit.
func roundPercent(v float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return rounded
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
