package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams = orz.NewError(10400, "参数无效")
	ErrUnauthorized  = orz.NewError(10401, "未授权")

	ErrPortfolioNotFound = orz.NewError(20001, "投资组合不存在")
	ErrPairNotSupported  = orz.NewError(20002, "不支持的交易对")
	ErrPriceUnavailable  = orz.NewError(20003, "行情暂时不可用")
	ErrInsufficientFunds = orz.NewError(20004, "余额不足")
	ErrInvalidThresholds = orz.NewError(20005, "止损止盈价格设置无效")
	ErrTradeNotFound     = orz.NewError(20006, "交易不存在")
	ErrTradeNotOwned     = orz.NewError(20007, "您没有权限操作此交易")
	ErrAlreadyClosed     = orz.NewError(20008, "交易已平仓")
)
