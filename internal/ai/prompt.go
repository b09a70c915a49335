package ai

import (
	"fmt"
	"strings"
)

type MoodBand string

const (
	BandHigh    MoodBand = "high"
	BandNeutral MoodBand = "neutral"
	BandLow     MoodBand = "low"
)

// BandFor maps a 1-5 mood score to its prompt style.
func BandFor(mood int) MoodBand {
	switch {
	case mood >= 4:
		return BandHigh
	case mood <= 2:
		return BandLow
	default:
		return BandNeutral
	}
}

func styleInstruction(mood int) string {
	switch BandFor(mood) {
	case BandHigh:
		return fmt.Sprintf(`
- 사용자의 컨디션이 매우 좋습니다 (점수: %d/5).
- 생산성을 극대화할 수 있도록 촘촘하고 구체적인 단계로 나누세요.
- 도전적인 부분도 포함해도 좋습니다.
- 10-20분 단위의 효율적인 작업을 제안하세요.`, mood)
	case BandLow:
		return fmt.Sprintf(`
- 사용자의 컨디션이 저조합니다 (점수: %d/5).
- 압도감을 느끼지 않도록 **매우 쉽고 간단한** 단계로 나누세요.
- 첫 단계는 "책상에 앉기"나 "물 한잔 마시기"처럼 진입장벽이 없는 것이어야 합니다.
- 5-10분 단위의 짧고 부담 없는 작업을 제안하세요.
- 격려하는 톤을 유지하세요.`, mood)
	default:
		return fmt.Sprintf(`
- 사용자의 컨디션이 보통입니다 (점수: %d/5).
- 균형 잡힌 난이도로 단계를 나누세요.
- 5-15분 단위의 실행 가능한 작업을 제안하세요.`, mood)
	}
}

// BuildBreakdownPrompt renders the single-turn instruction sent for a task
// breakdown. estimatedMinutes may be nil.
func BuildBreakdownPrompt(title string, estimatedMinutes *int, mood int) string {
	var sb strings.Builder
	sb.WriteString("당신은 ADHD를 가진 사람들을 돕는 작업 관리 전문가입니다. 주어진 작업을 사용자의 현재 컨디션에 맞춰 적절한 단계로 분해해주세요.\n\n")
	sb.WriteString("**현재 컨디션 가이드:**")
	sb.WriteString(styleInstruction(mood))
	sb.WriteString("\n\n**기본 원칙:**\n")
	sb.WriteString("- 단계는 실행 가능해야 합니다\n")
	sb.WriteString("- 3-7개의 단계로 분해하세요\n")
	sb.WriteString("- 각 단계에 예상 소요 시간을 표시하세요\n\n")
	fmt.Fprintf(&sb, "**작업:** %s\n", title)
	if estimatedMinutes != nil && *estimatedMinutes > 0 {
		fmt.Fprintf(&sb, "**총 예상 시간:** %d분", *estimatedMinutes)
	}
	sb.WriteString("\n\n**출력 형식 (JSON):**\n")
	sb.WriteString("```json\n[\n  {\n    \"text\": \"단계 설명\",\n    \"estimatedMinutes\": 숫자\n  }\n]\n```\n\n")
	sb.WriteString("JSON 형식으로만 응답하세요. 다른 설명은 포함하지 마세요.")
	return sb.String()
}

// BuildCategorizePrompt asks for a category and urgency/importance scores.
func BuildCategorizePrompt(title string) string {
	return fmt.Sprintf(`다음 작업을 카테고리로 분류하세요: "%s"

카테고리 옵션: work(업무), personal(개인), health(건강), learning(학습), household(집안일), other(기타)

JSON 형식으로 응답하세요:
{"category": "카테고리", "urgency": 1-10, "importance": 1-10}`, title)
}
