package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/zemyth-app/raise/internal/ledger"
)

// TransactionHandler 交易状态查询接口
type TransactionHandler struct {
	client *ledger.Client
}

func NewTransactionHandler(client *ledger.Client) *TransactionHandler {
	return &TransactionHandler{client: client}
}

// GetTransactionStatus 查询交易是否达到配置的确认数
func (h *TransactionHandler) GetTransactionStatus(c *gin.Context) {
	hash := c.Param("hash")
	if len(common.FromHex(hash)) != common.HashLength {
		ErrorResponse(c, http.StatusBadRequest, "无效的交易哈希")
		return
	}

	confirmed, err := h.client.IsTransactionConfirmed(c.Request.Context(), common.HexToHash(hash))
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "ok", gin.H{
		"tx_hash":   common.HexToHash(hash).Hex(),
		"confirmed": confirmed,
	})
}
