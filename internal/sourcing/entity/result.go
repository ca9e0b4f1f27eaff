package entity

// SourcingOutcome 每行BOM的处理结论，四种状态互斥
// 一次上传中对每行只计算一次，之后不再变化
type SourcingOutcome string

const (
	OutcomeSkipped        SourcingOutcome = "skipped"         // 明确排除或标记不贴装
	OutcomeAlreadySourced SourcingOutcome = "already_sourced" // 行内已有LCSC编号
	OutcomeMatched        SourcingOutcome = "matched"         // 选中了一个最优候选
	OutcomeNotFound       SourcingOutcome = "not_found"       // 搜了但没有可用结果
)

// RowResult 单行处理结果摘要，随上传响应返回给前端
// Quantity 仅供参考（显式数量列 > 位号个数 > 1），不参与选型
type RowResult struct {
	Reference string          `json:"reference"`
	Value     string          `json:"value"`
	Quantity  int             `json:"quantity"`
	Outcome   SourcingOutcome `json:"outcome"`
	Note      string          `json:"note"`
	Part      *Part           `json:"part,omitempty"`
}

// SourcingReport 一次BOM上传的整体结果
type SourcingReport struct {
	OutputFilename string      `json:"output_filename"`
	Matched        int         `json:"matched"`
	NotFound       int         `json:"not_found"`
	Skipped        int         `json:"skipped"`
	AlreadySourced int         `json:"already_sourced"`
	Rows           []RowResult `json:"rows"`
	CSV            string      `json:"csv"`
}
