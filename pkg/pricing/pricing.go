package pricing

// 模拟交易的费用与滑点计算，纯函数，不依赖任何外部状态

const (
	baseFeeRate     = 0.002 // 基础手续费率 0.2%
	leverageFeeRate = 0.001 // 杠杆附加费率 0.1% × (杠杆 - 1)
	maxSlippage     = 0.05  // 滑点上限 5%
)

// Side 持仓方向
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Fees 计算手续费：基础费 + 杠杆附加费
// 开仓与平仓各收取一次，均按开仓时的本金与杠杆计算
func Fees(size, leverage float64) float64 {
	fee := size * baseFeeRate
	if leverage > 1 {
		fee += size * leverageFeeRate * (leverage - 1)
	}
	return fee
}

// Slippage 根据交易规模与流动性计算滑点比例
// 滑点 = min(本金 × 价格 / 流动性 × 0.01, 5%)
func Slippage(size, currentPrice, liquidity float64) float64 {
	if liquidity <= 0 {
		return maxSlippage
	}
	slippage := size * currentPrice / liquidity * 0.01
	if slippage > maxSlippage {
		return maxSlippage
	}
	return slippage
}

// EntryPrice 计算滑点调整后的入场价格
// 做多向上调整（买贵），做空向下调整（卖贱）
func EntryPrice(side Side, quotedPrice, slippage float64) float64 {
	if side == SideShort {
		return quotedPrice * (1 - slippage)
	}
	return quotedPrice * (1 + slippage)
}

// RawPnl 计算不含手续费的盈亏
// 做多 = 价格变动比例 × 本金 × 杠杆，做空取反
func RawPnl(side Side, entryPrice, currentPrice, size, leverage float64) float64 {
	if entryPrice == 0 {
		return 0
	}
	change := (currentPrice - entryPrice) / entryPrice
	if side == SideShort {
		change = -change
	}
	return change * size * leverage
}

// NetPnl 净盈亏 = 原始盈亏 - 开仓手续费 - 平仓手续费
func NetPnl(rawPnl, openFees, exitFees float64) float64 {
	return rawPnl - openFees - exitFees
}
