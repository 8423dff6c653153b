package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	apprebalance "github.com/xiebiao/medsupply/internal/application/rebalance"
	apperrors "github.com/xiebiao/medsupply/pkg/errors"
	"github.com/xiebiao/medsupply/pkg/response"
)

// EngineHandler 引擎运维HTTP处理器
//
// 设计说明：
// 这是运维面，不是业务面。库存的增减由调度周期驱动，
// HTTP只提供状态查询和手动触发两个动作
type EngineHandler struct {
	scheduler *apprebalance.Scheduler
}

// NewEngineHandler 创建引擎处理器
func NewEngineHandler(scheduler *apprebalance.Scheduler) *EngineHandler {
	return &EngineHandler{scheduler: scheduler}
}

// Status 查询调度器状态
// @Summary      调度器状态
// @Description  当前状态、上个周期的汇总、连续失败次数、下次执行时间
// @Tags         引擎
// @Produce      json
// @Success      200 {object} response.Response
// @Router       /api/v1/engine/status [get]
func (h *EngineHandler) Status(c *gin.Context) {
	response.Success(c, h.scheduler.Status())
}

// Trigger 手动触发一次重平衡周期
// @Summary      手动触发周期
// @Description  同步执行，周期正在运行时返回50100
// @Tags         引擎
// @Produce      json
// @Success      200 {object} response.Response
// @Failure      500 {object} response.Response "周期正在执行中"
// @Router       /api/v1/engine/trigger [post]
func (h *EngineHandler) Trigger(c *gin.Context) {
	if err := h.scheduler.TriggerNow(); err != nil {
		if errors.Is(err, apperrors.ErrCycleRunning) {
			response.ErrorWithCode(c, apperrors.ErrCodeCycleRunning, apperrors.ErrCycleRunning.Message)
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, h.scheduler.Status())
}
