// Package view renders every outbound text and keyboard of the bot. It knows
// nothing about the transport: keyboards are plain values that the router
// turns into Telegram markup.
package view

// Callback keys.
const (
	ActPlan            = "plan"
	ActLocation        = "location"
	ActBackPlans       = "back_plans"
	ActConfirmPurchase = "confirm_purchase"
	ActCancelPurchase  = "cancel_purchase"
	ActService         = "service"
	ActGetLink         = "get_link"
	ActRenew           = "renew"
	ActConfirmRenew    = "confirm_renew"
	ActChangeLocation  = "change_location"
	ActNewLocation     = "new_location"
	ActBackServices    = "back_services"
	ActDeposit         = "deposit"
	ActGateway         = "gateway"
	ActCancelDeposit   = "cancel_deposit"
	ActTxHistory       = "tx_history"
	ActReferral        = "referral"
	ActTutorial        = "tutorial"
	ActAdminTx         = "admin_tx"
	ActApproveTx       = "approve_tx"
	ActRejectTx        = "reject_tx"
	ActBackPending     = "back_pending"
)

// Reply keyboard labels. A label press is a top-level action.
const (
	LabelBuy      = "🛍 خرید سرویس"
	LabelServices = "🔧 سرویس‌های من"
	LabelProfile  = "👤 پروفایل و کیف پول"
	LabelTutorial = "🍏 آموزش اتصال"
	LabelSupport  = "📞 پشتیبانی"
	LabelFreeTest = "🧪 تست رایگان"

	LabelAdminStats     = "📊 آمار سریع"
	LabelAdminPending   = "💳 تایید تراکنش"
	LabelAdminBroadcast = "📢 ارسال همگانی"

	LabelResellerStats     = "📊 آمار زیرمجموعه"
	LabelResellerUsers     = "👥 کاربران من"
	LabelResellerSubs      = "🛒 سرویس‌های زیرمجموعه"
	LabelResellerTxs       = "💳 تراکنش‌های زیرمجموعه"
	LabelResellerAffiliate = "🔗 لینک بازاریابی"

	LabelBack = "🔙 بازگشت"
)

// CancelCommand ends broadcast composition.
const CancelCommand = "/cancel"

// Tutorial platforms.
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformWindows = "windows"
	PlatformMacOS   = "macos"
)
