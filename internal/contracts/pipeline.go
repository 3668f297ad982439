package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, run details, 에러 메시지에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4 → S5 → S6
//   Universe  Data  Signals  Scoring  Snapshot  Ledger  Export

// Stage represents a pipeline stage
type Stage string

const (
	// StageUniverse S0: 종목 유니버스 결정
	// 책임: manual / sp500 / all_us 모드별 심볼 목록과 섹터 매핑
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S0_UNIVERSE"

	// StageData S1: 시세 수집 및 저장
	// 책임: 외부 provider에서 일봉 수집, price_data upsert
	// 위치: internal/s0_data/
	StageData Stage = "S1_DATA"

	// StageSignals S2: 지표 계산
	// 책임: SMA/모멘텀/시그널 계산, quant_metrics upsert
	// 위치: internal/s2_signals/indicators.go
	StageSignals Stage = "S2_SIGNALS"

	// StageScoring S3: 호라이즌 점수 및 추천
	// 책임: short/mid/long 점수, 가격 목표, 추천 필터
	// 위치: internal/s2_signals/scoring.go, internal/selection/
	StageScoring Stage = "S3_SCORING"

	// StageSnapshot S4: 스냅샷 및 보존 기간 정리
	// 위치: internal/audit/snapshot.go
	StageSnapshot Stage = "S4_SNAPSHOT"

	// StageLedger S5: run 종료 기록
	// 위치: internal/audit/run_ledger.go
	StageLedger Stage = "S5_LEDGER"

	// StageExport S6: 대시보드 JSON 출력
	// 위치: internal/dashboard/
	StageExport Stage = "S6_EXPORT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageUniverse:
		return "S0"
	case StageData:
		return "S1"
	case StageSignals:
		return "S2"
	case StageScoring:
		return "S3"
	case StageSnapshot:
		return "S4"
	case StageLedger:
		return "S5"
	case StageExport:
		return "S6"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageUniverse:
		return "종목 유니버스"
	case StageData:
		return "시세 수집/저장"
	case StageSignals:
		return "지표 계산"
	case StageScoring:
		return "점수/추천"
	case StageSnapshot:
		return "스냅샷/보존"
	case StageLedger:
		return "실행 기록"
	case StageExport:
		return "대시보드 출력"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageUniverse,
		StageData,
		StageSignals,
		StageScoring,
		StageSnapshot,
		StageLedger,
		StageExport,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}
