package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/meowbot/core/telegram/format"
	"github.com/m3rciful/meowbot/internal/backend"
	"github.com/m3rciful/meowbot/internal/broadcast"
)

// Shared replies.
const (
	NotApplicable   = "⚠️ این گزینه در حال حاضر قابل استفاده نیست."
	RetryLater      = "❌ ارتباط با سرور برقرار نشد. لطفاً کمی بعد دوباره تلاش کنید."
	AuthUnavailable = "❌ خطا در احراز هویت. لطفاً دوباره تلاش کنید."
	AuthStartAgain  = "❌ خطا در احراز هویت. لطفاً /start را بزنید."
	SessionLost     = "❌ اطلاعات این مرحله از دست رفت. لطفاً دوباره شروع کنید."
	GenericError    = "❌ خطا"
	RetryNotice     = "❌ خطا، لطفاً دوباره تلاش کنید"
	NoAccess        = "❌ دسترسی ندارید"
	MainMenuText    = "منوی اصلی:"
	StartFirst      = "❌ لطفاً ابتدا /start را بزنید"
	Cancelled       = "❌ عملیات لغو شد."
)

const (
	Welcome = "👋 به MeowVPN خوش آمدید!\n\n" +
		"🐱 با MeowVPN، اینترنت آزاد و امن را تجربه کنید.\n\n" +
		"لطفاً یکی از گزینه‌های زیر را انتخاب کنید:"
	AdminPanel    = "👑 پنل ادمین\n\nلطفاً یکی از گزینه‌ها را انتخاب کنید:"
	ResellerPanel = "🏢 پنل نماینده\n\nلطفاً یکی از گزینه‌ها را انتخاب کنید:"
)

// Purchase.
const (
	NoPlans           = "❌ در حال حاضر پلنی موجود نیست"
	PlanPrompt        = "📦 لطفاً پلن مورد نظر خود را انتخاب کنید:\n\n💡 نکته: قیمت‌ها به تومان است"
	PlanNotFound      = "❌ پلن یافت نشد"
	LocationNotFound  = "❌ لوکیشن یافت نشد"
	NoServers         = "❌ سروری در دسترس نیست"
	PurchaseFailed    = "❌ خطا در ایجاد سرویس. لطفاً موجودی کیف پول خود را بررسی کنید."
	PurchaseNotice    = "✅ سرویس ایجاد شد"
	PurchaseCancelled = "❌ خرید لغو شد."
)

// PlanButton labels a plan in the catalog keyboard.
func PlanButton(p backend.Plan) string {
	return fmt.Sprintf("%s | %d روز | %s | %s ت", p.Name, p.DurationDays, PlanTraffic(p), Money(p.PriceBase))
}

// LocationButton labels a location.
func LocationButton(l backend.Location) string {
	return strings.TrimSpace(l.Emoji + " " + l.Tag)
}

// LocationPrompt follows a plan choice.
func LocationPrompt(p backend.Plan) string {
	return fmt.Sprintf("📦 پلن انتخابی: %s\n💰 قیمت: %s تومان\n\n🌍 لطفاً لوکیشن سرور را انتخاب کنید:",
		p.Name, Money(p.PriceBase))
}

// OrderSummary asks to confirm the purchase of p at tag.
func OrderSummary(p backend.Plan, tag string) string {
	return fmt.Sprintf("🛒 خلاصه سفارش:\n\n📦 پلن: %s\n⏱ مدت: %d روز\n🌍 لوکیشن: %s\n💰 قیمت: %s تومان\n\nآیا تایید می‌کنید؟",
		p.Name, p.DurationDays, tag, Money(p.PriceBase))
}

// PurchaseDone reports the new subscription.
func PurchaseDone(subID int64, p backend.Plan, tag string) string {
	return fmt.Sprintf("✅ سرویس شما با موفقیت ایجاد شد!\n\n🆔 شناسه: #%d\n📦 پلن: %s\n🌍 لوکیشن: %s\n\n"+
		"برای دریافت لینک اتصال، به بخش «سرویس‌های من» مراجعه کنید.", subID, p.Name, tag)
}

// Services.
const (
	NoServices = "📭 شما هیچ سرویس فعالی ندارید.\n\n" +
		"برای خرید سرویس، از دکمه «خرید سرویس» استفاده کنید."
	NoServicesShort      = "📭 شما هیچ سرویس فعالی ندارید."
	ServiceNotFound      = "❌ سرویس یافت نشد"
	RenewFailed          = "❌ خطا در تمدید سرویس\n\nلطفاً موجودی کیف پول را بررسی کنید یا با پشتیبانی تماس بگیرید."
	LocationChangeFailed = "❌ خطا در تغییر لوکیشن\n\nلطفاً دوباره تلاش کنید یا با پشتیبانی تماس بگیرید."
	multiServer          = "چند سرور"
)

func statusEmoji(active bool) string {
	if active {
		return "✅"
	}
	return "❌"
}

// ServiceButton labels a subscription in the list.
func ServiceButton(s backend.Subscription) string {
	name := multiServer
	if s.Server != nil && s.Server.Name != "" {
		name = s.Server.Name
	}
	return fmt.Sprintf("%s سرویس #%d | %s", statusEmoji(s.Active()), s.ID, name)
}

// ServiceListHeader introduces the subscription list.
func ServiceListHeader(total int) string {
	return fmt.Sprintf("🔧 سرویس‌های شما (%d عدد):\n\nبرای مشاهده جزئیات و دریافت لینک، روی هر سرویس کلیک کنید:", total)
}

// ServiceDetail is the detail card of s as of now.
func ServiceDetail(s backend.Subscription, now time.Time) string {
	traffic := "نامحدود"
	if s.TotalTraffic > 0 {
		traffic = GB(s.UsedTraffic) + " / " + GB(s.TotalTraffic) + " GB"
	}
	days := "نامحدود"
	if exp, ok := s.ExpiresAt(); ok {
		if n := RemainingDays(exp, now); n > 0 {
			days = fmt.Sprintf("%d روز", n)
		} else {
			days = "منقضی شده"
		}
	}
	status := "غیرفعال"
	if s.Active() {
		status = "فعال"
	}
	flag, server := "🌍", multiServer
	if s.Server != nil {
		if s.Server.FlagEmoji != "" {
			flag = s.Server.FlagEmoji
		}
		if s.Server.Name != "" {
			server = s.Server.Name
		}
	}
	return fmt.Sprintf("📦 جزئیات سرویس #%d\n\nوضعیت: %s %s\nسرور: %s %s\nترافیک: %s\nاعتبار: %s\n\n"+
		"از دکمه‌های زیر برای مدیریت سرویس استفاده کنید:",
		s.ID, statusEmoji(s.Active()), status, flag, server, traffic, days)
}

// SubscriptionLink is the public import URL of a subscription.
func SubscriptionLink(publicBase, uuid string) string {
	return strings.TrimRight(publicBase, "/") + "/api/sub/" + uuid
}

// LinkMessage carries link in a code span. Markdown.
func LinkMessage(subID int64, link string) string {
	return fmt.Sprintf("🔗 لینک اشتراک سرویس #%d:\n\n`%s`\n\nاین لینک را در اپلیکیشن V2Ray خود وارد کنید.", subID, link)
}

// RenewShortfallText explains a balance below the renewal price.
func RenewShortfallText(balance, price backend.Amount) string {
	return fmt.Sprintf("❌ موجودی کافی نیست\n\n💰 موجودی شما: %s تومان\n💳 هزینه تمدید: %s تومان\n\n"+
		"لطفاً ابتدا کیف پول خود را شارژ کنید.", Money(balance), Money(price))
}

// RenewPrompt asks to confirm a renewal.
func RenewPrompt(subID int64, plan string, price, balance backend.Amount) string {
	if plan == "" {
		plan = "-"
	}
	return fmt.Sprintf("🔄 تمدید سرویس #%d\n\n📦 پلن: %s\n💰 هزینه: %s تومان\n💳 موجودی فعلی: %s تومان\n\nآیا تایید می‌کنید؟",
		subID, plan, Money(price), Money(balance))
}

// RenewDone confirms a renewal.
func RenewDone(subID int64) string {
	return fmt.Sprintf("✅ سرویس #%d با موفقیت تمدید شد!\n\nبرای مشاهده جزئیات، به بخش «سرویس‌های من» مراجعه کنید.", subID)
}

// LocationChangePrompt opens the location change.
func LocationChangePrompt(subID int64) string {
	return fmt.Sprintf("🌍 تغییر لوکیشن سرویس #%d\n\nلوکیشن جدید را انتخاب کنید:", subID)
}

// LocationChanged confirms the move.
func LocationChanged(subID int64, tag string) string {
	return fmt.Sprintf("✅ لوکیشن سرویس #%d با موفقیت به %s تغییر کرد!\n\n"+
		"⚠️ توجه: لینک اتصال شما تغییر کرده است. لطفاً لینک جدید را دریافت کنید.", subID, tag)
}

// Profile and wallet.
const (
	ProfileFailed       = "❌ خطا در دریافت اطلاعات. لطفاً /start را بزنید."
	DepositNotNumber    = "❌ لطفاً فقط عدد وارد کنید."
	GatewayPrompt       = "لطفاً روش پرداخت را انتخاب کنید:"
	PaymentLinkFailed   = "❌ خطا در ایجاد لینک پرداخت. لطفاً دوباره تلاش کنید."
	ProofDownloadFailed = "❌ خطا در دریافت تصویر. لطفاً دوباره ارسال کنید."
	DepositFileFailed   = "❌ خطا در ثبت درخواست. لطفاً تصویر رسید را دوباره ارسال کنید."
	DepositCancelled    = "❌ شارژ لغو شد."
	TxHistoryEmpty      = "📜 تاریخچه تراکنش خالی است."
)

// Profile is the identity card.
func Profile(id backend.Identity) string {
	username := id.Username
	if username == "" {
		username = "-"
	}
	return fmt.Sprintf("👤 پروفایل شما\n\n🆔 شناسه: #%d\n👤 نام کاربری: %s\n💰 موجودی کیف پول: %s تومان\n\nاز دکمه‌های زیر استفاده کنید:",
		id.ID, username, Money(id.WalletBalance))
}

// DepositPrompt asks for an amount in toman.
func DepositPrompt(min int64) string {
	return fmt.Sprintf("💰 شارژ کیف پول\n\nلطفاً مبلغ مورد نظر را به تومان وارد کنید:\n(حداقل %s تومان)", Number(min))
}

// DepositTooSmall rejects an amount under min.
func DepositTooSmall(min int64) string {
	return fmt.Sprintf("❌ حداقل مبلغ شارژ %s تومان است.", Number(min))
}

// DepositAmount echoes the accepted amount.
func DepositAmount(amount int64) string {
	return fmt.Sprintf("💰 مبلغ: %s تومان\n\n%s", Number(amount), GatewayPrompt)
}

// OnlinePayment relays the gateway URL.
func OnlinePayment(amount int64, url string) string {
	return fmt.Sprintf("💳 پرداخت آنلاین\n\nمبلغ: %s تومان\n\nبرای پرداخت روی لینک زیر کلیک کنید:\n%s", Number(amount), url)
}

// CardTransfer shows the manual transfer details. Markdown.
func CardTransfer(amount int64, card, holder string) string {
	return fmt.Sprintf("🏦 کارت به کارت\n\nمبلغ: %s تومان\n\nلطفاً مبلغ را به کارت زیر واریز کنید:\n\n"+
		"💳 شماره کارت: `%s`\n👤 به نام: %s\n\nپس از واریز، تصویر رسید را ارسال کنید:",
		Number(amount), card, format.Escape(holder))
}

// DepositFiled confirms a manual deposit awaiting review.
func DepositFiled(amount int64, txID int64) string {
	id := "-"
	if txID > 0 {
		id = itoa(txID)
	}
	return fmt.Sprintf("✅ درخواست شارژ ثبت شد!\n\nمبلغ: %s تومان\nشناسه: #%s\n\n"+
		"پس از بررسی توسط ادمین، موجودی شما شارژ خواهد شد.", Number(amount), id)
}

func txEmoji(status string) string {
	switch status {
	case "completed":
		return "✅"
	case "pending":
		return "⏳"
	}
	return "❌"
}

// TxHistory lists the latest transactions. Amounts are in rial.
func TxHistory(txs []backend.Transaction) string {
	var b strings.Builder
	b.WriteString("📜 آخرین تراکنش‌های شما:\n\n")
	for i, tx := range txs {
		if i == listLimit {
			break
		}
		kind := tx.Type
		switch tx.Type {
		case "deposit":
			kind = "شارژ"
		case "purchase":
			kind = "خرید"
		}
		fmt.Fprintf(&b, "%s %s | %s ﷼\n", txEmoji(tx.Status), kind, Money(tx.Amount))
	}
	return b.String()
}

// ReferralLink is the bot deep link that registers a referral.
func ReferralLink(botUsername string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%d", botUsername, userID)
}

// Referral shows the invite link. Markdown.
func Referral(link string) string {
	return fmt.Sprintf("🔗 لینک دعوت شما:\n\n`%s`\n\nبا دعوت دوستان خود، از هر خرید آن‌ها کمیسیون دریافت کنید!", link)
}

// Static pages.
const (
	TutorialMenu = "🍏 آموزش اتصال\n\nلطفاً سیستم‌عامل خود را انتخاب کنید:"
	NoTutorial   = "آموزش موجود نیست"
	FreeTest     = "🧪 تست رایگان\n\nبرای دریافت سرویس تست رایگان:\n" +
		"1. یک دوست را به ربات دعوت کنید\n" +
		"2. پس از عضویت دوست شما، سرویس تست فعال می‌شود\n\n" +
		"یا با پشتیبانی تماس بگیرید."
)

var tutorials = map[string]string{
	PlatformIOS: "📱 آموزش iOS:\n\n1. اپلیکیشن Streisand را از App Store دانلود کنید\n2. وارد برنامه شوید\n" +
		"3. روی + کلیک کنید\n4. لینک اشتراک را Paste کنید\n5. روی دکمه اتصال کلیک کنید",
	PlatformAndroid: "🤖 آموزش Android:\n\n1. اپلیکیشن v2rayNG را نصب کنید\n2. وارد برنامه شوید\n3. روی + کلیک کنید\n" +
		"4. گزینه 'Import config from clipboard' را بزنید\n5. لینک اشتراک را Paste کنید\n6. روی دکمه V کلیک کنید",
	PlatformWindows: "💻 آموزش Windows:\n\n1. اپلیکیشن Nekoray یا v2rayN را دانلود کنید\n2. برنامه را اجرا کنید\n" +
		"3. از منو گزینه افزودن سرور را بزنید\n4. لینک اشتراک را Paste کنید\n5. روی Connect کلیک کنید",
	PlatformMacOS: "🍎 آموزش macOS:\n\n1. اپلیکیشن V2Box را از App Store دانلود کنید\n2. وارد برنامه شوید\n" +
		"3. لینک اشتراک را اضافه کنید\n4. روی دکمه اتصال کلیک کنید",
}

// Tutorial returns the guide for platform.
func Tutorial(platform string) string {
	if t, ok := tutorials[platform]; ok {
		return t
	}
	return NoTutorial
}

// Support shows the support contact.
func Support(handle string) string {
	return fmt.Sprintf("📞 پشتیبانی MeowVPN\n\nبرای ارتباط با پشتیبانی:\n👤 %s\n\nساعات پاسخگویی: 9 صبح تا 12 شب", handle)
}

// Admin.
const (
	StatsFailed   = "❌ خطا در دریافت آمار"
	NoPending     = "✅ هیچ تراکنش در انتظار تاییدی وجود ندارد."
	PendingHeader = "💳 تراکنش‌های در انتظار تایید:\n\nبرای تایید یا رد، روی هر تراکنش کلیک کنید:"
)

// AdminStats is the dashboard summary. Sales are in rial.
func AdminStats(s backend.DashboardStats) string {
	return fmt.Sprintf("📊 آمار سریع:\n\n👥 کل کاربران: %s\n✅ سرویس‌های فعال: %s\n💰 فروش امروز: %s ﷼\n📈 فروش ماهانه: %s ﷼",
		Number(s.TotalUsers), Number(s.ActiveSubscriptions), Money(s.TodaySales), Money(s.MonthlySales))
}

// PendingButton labels a transaction awaiting review.
func PendingButton(tx backend.Transaction) string {
	user := "-"
	if tx.User != nil && tx.User.Username != "" {
		user = tx.User.Username
	}
	return fmt.Sprintf("#%d | %s | %s ﷼", tx.ID, user, Money(tx.Amount))
}

// ReviewPrompt opens the review card of txID.
func ReviewPrompt(txID int64) string {
	return fmt.Sprintf("💳 تراکنش #%d\n\nعملیات مورد نظر را انتخاب کنید:", txID)
}

// TxApproved confirms an approval.
func TxApproved(txID int64) string { return fmt.Sprintf("✅ تراکنش #%d تایید شد.", txID) }

// TxApproveFailed reports a failed approval.
func TxApproveFailed(txID int64) string { return fmt.Sprintf("❌ خطا در تایید تراکنش #%d", txID) }

// TxRejected confirms a rejection.
func TxRejected(txID int64) string { return fmt.Sprintf("❌ تراکنش #%d رد شد.", txID) }

// TxRejectFailed reports a failed rejection.
func TxRejectFailed(txID int64) string { return fmt.Sprintf("❌ خطا در رد تراکنش #%d", txID) }

// Broadcast.
const (
	BroadcastPrompt    = "📢 ارسال همگانی\n\nپیام خود را برای ارسال به همه کاربران بنویسید:\n\nبرای لغو: /cancel"
	BroadcastCancelled = "❌ ارسال همگانی لغو شد."
	NoRecipients       = "❌ کاربری برای ارسال پیام یافت نشد."
	BroadcastBusy      = "⏳ یک ارسال همگانی دیگر در حال انجام است. لطفاً پس از پایان آن دوباره تلاش کنید."
)

// BroadcastStarted opens the progress message.
func BroadcastStarted(total int) string {
	return fmt.Sprintf("📤 در حال ارسال به %d کاربر...", total)
}

// BroadcastProgress is the running tally.
func BroadcastProgress(p broadcast.Progress) string {
	return fmt.Sprintf("📤 در حال ارسال...\n✅ ارسال شده: %d\n❌ ناموفق: %d\n📊 پیشرفت: %d/%d",
		p.Sent, p.Failed, p.Done(), p.Total)
}

// BroadcastDone is the final tally.
func BroadcastDone(r broadcast.Result) string {
	return fmt.Sprintf("✅ ارسال همگانی تمام شد!\n\n📊 نتایج:\n✅ موفق: %d\n❌ ناموفق: %d\n📨 کل: %d",
		r.Sent, r.Failed, r.Total)
}

// Reseller.
const (
	resellerStatsTitle = "📊 آمار زیرمجموعه"
	resellerUsersTitle = "👥 کاربران من"
	resellerSubsTitle  = "🛒 سرویس‌های زیرمجموعه"
	resellerTxsTitle   = "💳 تراکنش‌های زیرمجموعه"
	noSubUsers         = "❌ هیچ کاربری در زیرمجموعه شما وجود ندارد."

	AffiliateFailed = "❌ خطا در دریافت لینک بازاریابی"

	resellerUserLimit = 20
)

// Titles of the reseller pages without any sub-user.
var (
	ResellerStatsEmpty = resellerStatsTitle + "\n\n" + noSubUsers
	ResellerUsersEmpty = resellerUsersTitle + "\n\n" + noSubUsers
	ResellerSubsEmpty  = resellerSubsTitle + "\n\n" + noSubUsers
	ResellerTxsEmpty   = resellerTxsTitle + "\n\n" + noSubUsers
	ResellerNoSubs     = resellerSubsTitle + "\n\n❌ هیچ سرویسی در زیرمجموعه شما وجود ندارد."
	ResellerNoTxs      = resellerTxsTitle + "\n\n❌ هیچ تراکنشی یافت نشد."
	ResellerNoSubTxs   = resellerTxsTitle + "\n\n❌ هیچ تراکنشی در زیرمجموعه شما وجود ندارد."
)

// ResellerStats summarises the sub-user tree.
func ResellerStats(users, active int, balance backend.Amount) string {
	return fmt.Sprintf("%s\n\n👥 تعداد کاربران: %d\n✅ سرویس‌های فعال: %d\n💰 موجودی کیف پول: %s تومان",
		resellerStatsTitle, users, active, Money(balance))
}

// ResellerUsers lists up to twenty sub-users.
func ResellerUsers(users []backend.User) string {
	var b strings.Builder
	b.WriteString("👥 کاربران زیرمجموعه شما:\n\n")
	for i, u := range users {
		if i == resellerUserLimit {
			break
		}
		name := u.Username
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "%d. %s (ID: %d)\n", i+1, name, u.ID)
	}
	if extra := len(users) - resellerUserLimit; extra > 0 {
		fmt.Fprintf(&b, "\n... و %d کاربر دیگر", extra)
	}
	return b.String()
}

// ResellerSubs lists up to ten subscriptions of sub-users.
func ResellerSubs(subs []backend.Subscription) string {
	var b strings.Builder
	b.WriteString(resellerSubsTitle + ":\n\n")
	for i, s := range subs {
		if i == listLimit {
			break
		}
		status := s.Status
		if status == "" {
			status = "unknown"
		}
		emoji := "❌"
		switch status {
		case "active":
			emoji = "✅"
		case "paused":
			emoji = "⏸"
		}
		fmt.Fprintf(&b, "%d. سرویس #%d - کاربر #%d - %s %s\n", i+1, s.ID, s.UserID, emoji, status)
	}
	if extra := len(subs) - listLimit; extra > 0 {
		fmt.Fprintf(&b, "\n... و %d سرویس دیگر", extra)
	}
	return b.String()
}

// ResellerTxs lists up to ten sub-user transactions, converted to toman.
func ResellerTxs(txs []backend.Transaction) string {
	var b strings.Builder
	b.WriteString("💳 آخرین تراکنش‌های زیرمجموعه:\n\n")
	for i, tx := range txs {
		if i == listLimit {
			break
		}
		kind := tx.Type
		if kind == "" {
			kind = "unknown"
		}
		fmt.Fprintf(&b, "%d. %s %s | %s تومان | کاربر #%d\n",
			i+1, txEmoji(tx.Status), kind, Money(tx.Amount/10), tx.UserID)
	}
	if extra := len(txs) - listLimit; extra > 0 {
		fmt.Fprintf(&b, "\n... و %d تراکنش دیگر", extra)
	}
	return b.String()
}

// Affiliate shows the marketing link with optional earnings. Markdown.
func Affiliate(link string, stats *backend.AffiliateStats) string {
	text := fmt.Sprintf("🔗 لینک بازاریابی شما:\n\n`%s`\n\nبا دعوت کاربران، از هر خرید آن‌ها کمیسیون دریافت کنید!", link)
	if stats != nil {
		text += fmt.Sprintf("\n\n📊 آمار بازاریابی:\n👥 تعداد دعوت شده: %d\n💰 کل درآمد: %s تومان\n⏳ در انتظار: %s تومان",
			stats.ReferralsCount, Money(stats.TotalEarnings/10), Money(stats.PendingEarnings/10))
	}
	return text
}
