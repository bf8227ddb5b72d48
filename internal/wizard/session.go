// internal/wizard/session.go
package wizard

import (
	"fmt"
	"strings"

	"github.com/prisken/content-sub000/internal/errors"
	"github.com/prisken/content-sub000/internal/models"
)

// Field 向导中可设置的字段名（与前端 JSON 字段一致）
type Field string

const (
	FieldDirection     Field = "direction"
	FieldPlatform      Field = "platform"
	FieldPostType      Field = "postType"
	FieldSource        Field = "source"
	FieldSourceDetails Field = "sourceDetails"
	FieldSelectedTopic Field = "selectedTopic"
	FieldTone          Field = "tone"
	FieldImageStyle    Field = "imageStyle"
	FieldLanguage      Field = "language"
)

// Flow 向导的步骤编排
type Flow string

const (
	// FlowClassic 旧版页面：选题与来源在同一步
	FlowClassic Flow = "classic"
	// FlowGuided React 版：来源和选题分成两步
	FlowGuided Flow = "guided"
)

// 每一步负责的必填字段，下标 0 对应第 1 步
var stepFields = map[Flow][][]Field{
	FlowClassic: {
		{FieldDirection},
		{FieldPlatform, FieldPostType},
		{FieldSource, FieldSelectedTopic},
		{FieldTone},
	},
	FlowGuided: {
		{FieldDirection},
		{FieldPlatform, FieldPostType},
		{FieldSource},
		{FieldSelectedTopic},
		{FieldTone},
	},
}

// ParseFlow 解析流程名，空串为 classic
func ParseFlow(raw string) (Flow, error) {
	switch f := Flow(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FlowClassic, nil
	case FlowClassic, FlowGuided:
		return f, nil
	default:
		return "", errors.NewValidationError(fmt.Sprintf("unknown wizard flow %q", raw), nil)
	}
}

// Steps 返回流程的步骤数 N
func (f Flow) Steps() int {
	return len(stepFields[f])
}

// AdvanceResult 前进操作的结果；字段未填时不是错误，只带回提示
type AdvanceResult struct {
	Moved        bool   `json:"moved"`
	Step         int    `json:"step"`
	MissingField Field  `json:"missing_field,omitempty"`
	MessageKey   string `json:"message_key,omitempty"`
}

// Session 一次生成会话的向导状态，不做并发保护，由调用方加锁
type Session struct {
	ID          string
	Flow        Flow
	currentStep int
	selection   models.WizardSelection
}

// NewSession 创建位于第 1 步、选择为空的会话
func NewSession(id string, flow Flow, lang models.Language) *Session {
	if flow.Steps() == 0 {
		flow = FlowClassic
	}
	if !lang.Valid() {
		lang = models.DefaultLanguage
	}
	return &Session{
		ID:          id,
		Flow:        flow,
		currentStep: 1,
		selection: models.WizardSelection{
			ImageStyle: models.DefaultImageStyle,
			Language:   lang,
		},
	}
}

func (s *Session) Step() int {
	return s.currentStep
}

// Selection 返回当前选择的副本
func (s *Session) Selection() models.WizardSelection {
	return s.selection
}

// StepFields 返回当前步骤负责的字段
func (s *Session) StepFields() []Field {
	return append([]Field(nil), stepFields[s.Flow][s.currentStep-1]...)
}

// Advance 当前步骤字段齐全且不是最后一步时前进
func (s *Session) Advance() AdvanceResult {
	if s.currentStep >= s.Flow.Steps() {
		return AdvanceResult{Step: s.currentStep, MessageKey: "wizard.last_step"}
	}
	for _, f := range stepFields[s.Flow][s.currentStep-1] {
		if s.value(f) == "" {
			return AdvanceResult{
				Step:         s.currentStep,
				MissingField: f,
				MessageKey:   "wizard.missing." + string(f),
			}
		}
	}
	s.currentStep++
	return AdvanceResult{Moved: true, Step: s.currentStep}
}

// Retreat 后退一步，不清除任何选择
func (s *Session) Retreat() bool {
	if s.currentStep <= 1 {
		return false
	}
	s.currentStep--
	return true
}

// Reset 清空选择并回到第 1 步；保留界面语言
func (s *Session) Reset() {
	s.selection = models.WizardSelection{
		ImageStyle: models.DefaultImageStyle,
		Language:   s.selection.Language,
	}
	s.currentStep = 1
}

// Complete 必填字段是否全部就绪
func (s *Session) Complete() bool {
	return s.selection.Complete()
}

// CanGenerate 完整且位于最后一步
func (s *Session) CanGenerate() bool {
	return s.Complete() && s.currentStep == s.Flow.Steps()
}

// SetField 校验后写入字段。非法值返回校验错误且状态不变；
// 空值表示清除该字段。
func (s *Session) SetField(field Field, value string) error {
	value = strings.TrimSpace(value)
	next := s.selection

	switch field {
	case FieldDirection:
		d := models.Direction(value)
		if value != "" && !d.Valid() {
			return invalidValue(field, value)
		}
		next.Direction = d
	case FieldPlatform:
		p := models.Platform(value)
		if value != "" && !p.Valid() {
			return invalidValue(field, value)
		}
		next.Platform = p
		next.PostType = ""
	case FieldPostType:
		pt := models.PostType(value)
		if value != "" && !pt.ValidFor(next.Platform) {
			return errors.NewValidationError(
				fmt.Sprintf("post type %q is not available for platform %q", value, next.Platform), nil)
		}
		next.PostType = pt
	case FieldSource:
		src := models.Source(value)
		if value != "" && !src.Valid() {
			return invalidValue(field, value)
		}
		next.Source = src
		next.SourceDetails = ""
		next.SelectedTopic = ""
	case FieldSourceDetails:
		next.SourceDetails = value
	case FieldSelectedTopic:
		next.SelectedTopic = value
	case FieldTone:
		t := models.Tone(value)
		if value != "" && !t.Valid() {
			return invalidValue(field, value)
		}
		next.Tone = t
	case FieldImageStyle:
		st := models.ImageStyle(value)
		if value == "" {
			st = models.DefaultImageStyle
		} else if !st.Valid() {
			return invalidValue(field, value)
		}
		next.ImageStyle = st
	case FieldLanguage:
		l := models.Language(strings.ToLower(value))
		if !l.Valid() {
			return invalidValue(field, value)
		}
		next.Language = l
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown wizard field %q", field), nil)
	}

	s.selection = next
	return nil
}

// fieldOrder 批量写入时的顺序：平台先于帖子类型，来源先于选题
var fieldOrder = []Field{
	FieldDirection,
	FieldPlatform,
	FieldPostType,
	FieldSource,
	FieldSourceDetails,
	FieldSelectedTopic,
	FieldTone,
	FieldImageStyle,
	FieldLanguage,
}

// SetFields 按固定顺序批量写入；任一字段非法时整体回滚
func (s *Session) SetFields(values map[Field]string) error {
	for f := range values {
		if !knownField(f) {
			return errors.NewValidationError(fmt.Sprintf("unknown wizard field %q", f), nil)
		}
	}

	backup := s.selection
	for _, f := range fieldOrder {
		v, ok := values[f]
		if !ok {
			continue
		}
		if err := s.SetField(f, v); err != nil {
			s.selection = backup
			return err
		}
	}
	return nil
}

func knownField(f Field) bool {
	for _, known := range fieldOrder {
		if f == known {
			return true
		}
	}
	return false
}

// Snapshot 会话的不可变视图，用于 JSON 输出
type Snapshot struct {
	ID          string                 `json:"id"`
	Flow        Flow                   `json:"flow"`
	Step        int                    `json:"step"`
	TotalSteps  int                    `json:"total_steps"`
	StepFields  []Field                `json:"step_fields"`
	Selection   models.WizardSelection `json:"selection"`
	Complete    bool                   `json:"complete"`
	CanGenerate bool                   `json:"can_generate"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:          s.ID,
		Flow:        s.Flow,
		Step:        s.currentStep,
		TotalSteps:  s.Flow.Steps(),
		StepFields:  s.StepFields(),
		Selection:   s.selection,
		Complete:    s.Complete(),
		CanGenerate: s.CanGenerate(),
	}
}

func (s *Session) value(f Field) string {
	switch f {
	case FieldDirection:
		return string(s.selection.Direction)
	case FieldPlatform:
		return string(s.selection.Platform)
	case FieldPostType:
		return string(s.selection.PostType)
	case FieldSource:
		return string(s.selection.Source)
	case FieldSourceDetails:
		return s.selection.SourceDetails
	case FieldSelectedTopic:
		return s.selection.SelectedTopic
	case FieldTone:
		return string(s.selection.Tone)
	case FieldImageStyle:
		return string(s.selection.ImageStyle)
	case FieldLanguage:
		return string(s.selection.Language)
	}
	return ""
}

func invalidValue(field Field, value string) error {
	return errors.NewValidationError(fmt.Sprintf("invalid %s %q", field, value), nil)
}
