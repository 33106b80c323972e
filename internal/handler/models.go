package handler

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

// 动作请求模型。金额一律十进制字符串传输

// TierRequest 档位定义
type TierRequest struct {
	Amount         string `json:"amount" binding:"required"`
	MaxLots        uint64 `json:"maxLots" binding:"required"`
	TokenRatio     uint64 `json:"tokenRatio" binding:"required"`
	VoteMultiplier uint64 `json:"voteMultiplier" binding:"required"`
}

// TokenomicsRequest 代币经济参数
type TokenomicsRequest struct {
	TotalSupply     string `json:"totalSupply" binding:"required"`
	InvestorBps     uint16 `json:"investorBps"`
	FounderBps      uint16 `json:"founderBps"`
	LiquidityBps    uint16 `json:"liquidityBps"`
	TreasuryBps     uint16 `json:"treasuryBps"`
	CliffDuration   int64  `json:"cliffDuration"`
	VestingDuration int64  `json:"vestingDuration"`
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	ProjectId   uint64            `json:"projectId" binding:"required"`
	Founder     string            `json:"founder" binding:"required"`
	FundingGoal string            `json:"fundingGoal" binding:"required"`
	Tiers       []TierRequest     `json:"tiers" binding:"required"`
	Percentages []uint8           `json:"percentages" binding:"required"`
	Tokenomics  TokenomicsRequest `json:"tokenomics" binding:"required"`
	MetadataURI string            `json:"metadataUri"`
}

// InvestRequest 投资请求
type InvestRequest struct {
	Investor string `json:"investor" binding:"required"`
	Mint     string `json:"mint" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
}

// DeadlineRequest 设置/延长截止时间请求
type DeadlineRequest struct {
	Founder  string `json:"founder" binding:"required"`
	Deadline int64  `json:"deadline" binding:"required"` // unix秒
}

// SignerRequest 仅需签名人的动作请求
type SignerRequest struct {
	Signer string `json:"signer" binding:"required"`
}

// VoteRequest 投票请求
type VoteRequest struct {
	Voter  string `json:"voter" binding:"required"`
	Mint   string `json:"mint" binding:"required"`
	Choice string `json:"choice" binding:"required"` // good / bad
}

// ClaimRequest 领取/退款请求
type ClaimRequest struct {
	Investor string `json:"investor" binding:"required"`
	Mint     string `json:"mint" binding:"required"`
}

// BatchDistributeRequest 批量分发请求
type BatchDistributeRequest struct {
	Admin string   `json:"admin" binding:"required"`
	Mints []string `json:"mints" binding:"required"`
}

// ProposePivotRequest 转向提案请求
type ProposePivotRequest struct {
	Founder     string  `json:"founder" binding:"required"`
	Percentages []uint8 `json:"percentages" binding:"required"`
	MetadataURI string  `json:"metadataUri"`
}

// ReportScamRequest 欺诈举报请求
type ReportScamRequest struct {
	Reporter  string `json:"reporter" binding:"required"`
	Mint      string `json:"mint" binding:"required"`
	DetailURI string `json:"detailUri"`
}

// TxResponse 链上动作响应
type TxResponse struct {
	TxHash string `json:"txHash"`
}
