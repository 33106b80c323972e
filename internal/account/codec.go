package account

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// 解码错误
var (
	ErrEmptyData   = errors.New("account data is empty")
	ErrUnknownTag  = errors.New("unknown account tag")
	ErrShortBuffer = errors.New("account data truncated")
	ErrTrailing    = errors.New("account data has trailing bytes")
)

// 所有跨越编码边界的整数一律使用小端定宽编码：
// u64/i64 为8字节，u16 为2字节，序号/轮次/标记为1字节，
// 金额为32字节小端整数，字符串为4字节小端长度前缀加原始字节。
// 宽度属于链上兼容面，必须逐位一致。

const amountWidth = 32

// Decode 解码账户字节流。首字节为判别标签，据此选择记录类型。
// 末尾多余字节视为解码错误，防止静默接受布局漂移的数据。
func Decode(data []byte) (Record, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	r := &reader{buf: data, off: 1}
	var rec Record
	switch data[0] {
	case TagProject:
		rec = decodeProject(r)
	case TagMilestone:
		rec = decodeMilestone(r)
	case TagInvestment:
		rec = decodeInvestment(r)
	case TagVote:
		rec = decodeVote(r)
	case TagTokenomics:
		rec = decodeTokenomics(r)
	case TagPivotProposal:
		rec = decodePivotProposal(r)
	case TagFounderVesting:
		rec = decodeFounderVesting(r)
	case TagDistribution:
		rec = decodeDistribution(r)
	case TagAdminConfig:
		rec = decodeAdminConfig(r)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, data[0])
	}

	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(r.buf) {
		return nil, fmt.Errorf("%w: %d bytes left", ErrTrailing, len(r.buf)-r.off)
	}
	return rec, nil
}

// Encode 编码账户记录为字节流，首字节为判别标签
func Encode(rec Record) ([]byte, error) {
	w := &writer{}
	w.u8(rec.Tag())

	switch v := rec.(type) {
	case *Project:
		encodeProject(w, v)
	case *Milestone:
		encodeMilestone(w, v)
	case *Investment:
		encodeInvestment(w, v)
	case *Vote:
		encodeVote(w, v)
	case *Tokenomics:
		encodeTokenomics(w, v)
	case *PivotProposal:
		encodePivotProposal(w, v)
	case *FounderVesting:
		encodeFounderVesting(w, v)
	case *Distribution:
		encodeDistribution(w, v)
	case *AdminConfig:
		encodeAdminConfig(w, v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownTag, rec)
	}

	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// ---- 各记录的字段布局 ----

func encodeProject(w *writer, p *Project) {
	w.u64(p.ID)
	w.address(p.Founder)
	w.amount(p.FundingGoal)
	w.amount(p.AmountRaised)
	w.u8(uint8(p.State))
	w.u8(uint8(len(p.Tiers)))
	for i := range p.Tiers {
		t := &p.Tiers[i]
		w.amount(t.Amount)
		w.u64(t.MaxLots)
		w.u64(t.FilledLots)
		w.u64(t.TokenRatio)
		w.u64(t.VoteMultiplier)
	}
	w.u8(p.MilestoneCount)
	w.u8(p.CurrentMilestone)
	w.u8(p.PivotCount)
	w.bool(p.HasActivePivot)
	w.u8(p.ConsecutiveFailures)
	w.u64(p.InvestorCount)
	w.i64(p.ExitWindowEnd)
	w.i64(p.FundedAt)
	w.i64(p.CreatedAt)
	w.string(p.MetadataURI)
}

func decodeProject(r *reader) *Project {
	p := &Project{}
	p.ID = r.u64()
	p.Founder = r.address()
	p.FundingGoal = r.amount()
	p.AmountRaised = r.amount()
	p.State = ProjectState(r.u8())
	tierCount := int(r.u8())
	if tierCount > MaxTiers {
		r.fail(fmt.Errorf("project has %d tiers, max %d", tierCount, MaxTiers))
		return p
	}
	p.Tiers = make([]Tier, 0, tierCount)
	for i := 0; i < tierCount && r.err == nil; i++ {
		p.Tiers = append(p.Tiers, Tier{
			Amount:         r.amount(),
			MaxLots:        r.u64(),
			FilledLots:     r.u64(),
			TokenRatio:     r.u64(),
			VoteMultiplier: r.u64(),
		})
	}
	p.MilestoneCount = r.u8()
	p.CurrentMilestone = r.u8()
	p.PivotCount = r.u8()
	p.HasActivePivot = r.bool()
	p.ConsecutiveFailures = r.u8()
	p.InvestorCount = r.u64()
	p.ExitWindowEnd = r.i64()
	p.FundedAt = r.i64()
	p.CreatedAt = r.i64()
	p.MetadataURI = r.string()
	return p
}

func encodeMilestone(w *writer, m *Milestone) {
	w.hash(m.ProjectAddr)
	w.u8(m.Index)
	w.u8(m.Percentage)
	w.u8(uint8(m.State))
	w.amount(m.YesVotes)
	w.amount(m.NoVotes)
	w.amount(m.TotalWeight)
	w.u64(m.VoterCount)
	w.u8(m.VotingRound)
	w.i64(m.VotingEndsAt)
	w.i64(m.Deadline)
	w.u8(m.ExtensionCount)
	w.i64(m.SubmittedAt)
}

func decodeMilestone(r *reader) *Milestone {
	return &Milestone{
		ProjectAddr:    r.hash(),
		Index:          r.u8(),
		Percentage:     r.u8(),
		State:          MilestoneState(r.u8()),
		YesVotes:       r.amount(),
		NoVotes:        r.amount(),
		TotalWeight:    r.amount(),
		VoterCount:     r.u64(),
		VotingRound:    r.u8(),
		VotingEndsAt:   r.i64(),
		Deadline:       r.i64(),
		ExtensionCount: r.u8(),
		SubmittedAt:    r.i64(),
	}
}

func encodeInvestment(w *writer, inv *Investment) {
	w.hash(inv.ProjectAddr)
	w.address(inv.Investor)
	w.address(inv.Mint)
	w.amount(inv.Amount)
	w.amount(inv.VoteWeight)
	w.amount(inv.TokenAllocation)
	w.u8(inv.TierIndex)
	w.i64(inv.Timestamp)
	w.bool(inv.Claimed)
	w.bool(inv.Withdrawn)
	w.bool(inv.Refunded)
}

func decodeInvestment(r *reader) *Investment {
	return &Investment{
		ProjectAddr:     r.hash(),
		Investor:        r.address(),
		Mint:            r.address(),
		Amount:          r.amount(),
		VoteWeight:      r.amount(),
		TokenAllocation: r.amount(),
		TierIndex:       r.u8(),
		Timestamp:       r.i64(),
		Claimed:         r.bool(),
		Withdrawn:       r.bool(),
		Refunded:        r.bool(),
	}
}

func encodeVote(w *writer, v *Vote) {
	w.hash(v.MilestoneAddr)
	w.address(v.Voter)
	w.u8(uint8(v.Choice))
	w.amount(v.Weight)
	w.u8(v.Round)
	w.i64(v.Timestamp)
}

func decodeVote(r *reader) *Vote {
	return &Vote{
		MilestoneAddr: r.hash(),
		Voter:         r.address(),
		Choice:        VoteChoice(r.u8()),
		Weight:        r.amount(),
		Round:         r.u8(),
		Timestamp:     r.i64(),
	}
}

func encodeTokenomics(w *writer, t *Tokenomics) {
	w.hash(t.ProjectAddr)
	w.amount(t.TotalSupply)
	w.u16(t.InvestorBps)
	w.u16(t.FounderBps)
	w.u16(t.LiquidityBps)
	w.u16(t.TreasuryBps)
	w.i64(t.CliffDuration)
	w.i64(t.VestingDuration)
}

func decodeTokenomics(r *reader) *Tokenomics {
	return &Tokenomics{
		ProjectAddr:     r.hash(),
		TotalSupply:     r.amount(),
		InvestorBps:     r.u16(),
		FounderBps:      r.u16(),
		LiquidityBps:    r.u16(),
		TreasuryBps:     r.u16(),
		CliffDuration:   r.i64(),
		VestingDuration: r.i64(),
	}
}

func encodePivotProposal(w *writer, p *PivotProposal) {
	w.hash(p.ProjectAddr)
	w.u8(uint8(p.State))
	w.string(p.MetadataURI)
	w.u8(uint8(len(p.NewPercentages)))
	for _, pct := range p.NewPercentages {
		w.u8(pct)
	}
	w.i64(p.ProposedAt)
	w.i64(p.ApprovedAt)
	w.i64(p.WithdrawWindowEnd)
	w.amount(p.WithdrawnAmount)
	w.u64(p.WithdrawnCount)
}

func decodePivotProposal(r *reader) *PivotProposal {
	p := &PivotProposal{}
	p.ProjectAddr = r.hash()
	p.State = PivotState(r.u8())
	p.MetadataURI = r.string()
	count := int(r.u8())
	p.NewPercentages = make([]uint8, 0, count)
	for i := 0; i < count && r.err == nil; i++ {
		p.NewPercentages = append(p.NewPercentages, r.u8())
	}
	p.ProposedAt = r.i64()
	p.ApprovedAt = r.i64()
	p.WithdrawWindowEnd = r.i64()
	p.WithdrawnAmount = r.amount()
	p.WithdrawnCount = r.u64()
	return p
}

func encodeFounderVesting(w *writer, v *FounderVesting) {
	w.hash(v.ProjectAddr)
	w.amount(v.TotalEntitlement)
	w.i64(v.CliffEnd)
	w.i64(v.VestingEnd)
	w.amount(v.Claimed)
}

func decodeFounderVesting(r *reader) *FounderVesting {
	return &FounderVesting{
		ProjectAddr:      r.hash(),
		TotalEntitlement: r.amount(),
		CliffEnd:         r.i64(),
		VestingEnd:       r.i64(),
		Claimed:          r.amount(),
	}
}

func encodeDistribution(w *writer, d *Distribution) {
	w.hash(d.MilestoneAddr)
	w.u8(uint8(d.State))
	w.u64(d.TotalInvestors)
	w.u64(d.DistributedCount)
	w.i64(d.StartedAt)
	w.i64(d.UpdatedAt)
	w.i64(d.ForceCompletedAt)
}

func decodeDistribution(r *reader) *Distribution {
	return &Distribution{
		MilestoneAddr:    r.hash(),
		State:            DistributionState(r.u8()),
		TotalInvestors:   r.u64(),
		DistributedCount: r.u64(),
		StartedAt:        r.i64(),
		UpdatedAt:        r.i64(),
		ForceCompletedAt: r.i64(),
	}
}

func encodeAdminConfig(w *writer, a *AdminConfig) {
	w.address(a.Admin)
	w.address(a.Moderator)
	w.bool(a.Paused)
}

func decodeAdminConfig(r *reader) *AdminConfig {
	return &AdminConfig{
		Admin:     r.address(),
		Moderator: r.address(),
		Paused:    r.bool(),
	}
}

// ---- 小端定宽读写器 ----

type writer struct {
	buf []byte
	err error
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *writer) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *writer) i64(v int64) { w.u64(uint64(v)) }

func (w *writer) hash(h common.Hash) { w.buf = append(w.buf, h.Bytes()...) }

func (w *writer) address(a common.Address) { w.buf = append(w.buf, a.Bytes()...) }

// amount 金额编码为32字节小端整数。nil 视为零，负数或超宽报错
func (w *writer) amount(v *big.Int) {
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 {
		w.fail(fmt.Errorf("negative amount %s", v))
		return
	}
	be := v.Bytes()
	if len(be) > amountWidth {
		w.fail(fmt.Errorf("amount %s exceeds %d bytes", v, amountWidth))
		return
	}
	le := make([]byte, amountWidth)
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	w.buf = append(w.buf, le...)
}

func (w *writer) string(s string) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.fail(fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrShortBuffer, n, r.off, len(r.buf)-r.off))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) bool() bool { return r.u8() != 0 }

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) hash() common.Hash {
	b := r.take(32)
	if b == nil {
		return common.Hash{}
	}
	return common.BytesToHash(b)
}

func (r *reader) address() common.Address {
	b := r.take(20)
	if b == nil {
		return common.Address{}
	}
	return common.BytesToAddress(b)
}

func (r *reader) amount() *big.Int {
	b := r.take(amountWidth)
	if b == nil {
		return new(big.Int)
	}
	be := make([]byte, amountWidth)
	for i, v := range b {
		be[amountWidth-1-i] = v
	}
	return new(big.Int).SetBytes(be)
}

func (r *reader) string() string {
	b := r.take(4)
	if b == nil {
		return ""
	}
	n := int(binary.LittleEndian.Uint32(b))
	s := r.take(n)
	if s == nil {
		return ""
	}
	return string(s)
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
