package view

import (
	"strconv"

	"github.com/m3rciful/meowbot/internal/backend"
)

// listLimit caps the entries of inline lists.
const listLimit = 10

// Button is one key. Reply keyboards use only Text.
type Button struct {
	Text    string
	Action  string
	Payload string
}

// Keyboard is either a reply keyboard or inline rows.
type Keyboard struct {
	Reply bool
	Rows  [][]Button
}

func row(b ...Button) []Button { return b }

func btn(text, action string, payload ...string) Button {
	b := Button{Text: text, Action: action}
	if len(payload) > 0 {
		b.Payload = payload[0]
	}
	return b
}

func key(label string) Button { return Button{Text: label} }

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

// Labels returns the texts of a reply keyboard in order.
func (k *Keyboard) Labels() []string {
	if k == nil {
		return nil
	}
	var out []string
	for _, r := range k.Rows {
		for _, b := range r {
			out = append(out, b.Text)
		}
	}
	return out
}

// Find returns the first button wired to action.
func (k *Keyboard) Find(action string) (Button, bool) {
	if k == nil {
		return Button{}, false
	}
	for _, r := range k.Rows {
		for _, b := range r {
			if b.Action == action {
				return b, true
			}
		}
	}
	return Button{}, false
}

// MainMenu is the user reply keyboard.
func MainMenu() *Keyboard {
	return &Keyboard{Reply: true, Rows: [][]Button{
		row(key(LabelBuy), key(LabelServices)),
		row(key(LabelProfile), key(LabelTutorial)),
		row(key(LabelSupport), key(LabelFreeTest)),
	}}
}

// AdminMenu is the admin reply keyboard.
func AdminMenu() *Keyboard {
	return &Keyboard{Reply: true, Rows: [][]Button{
		row(key(LabelAdminStats), key(LabelAdminPending)),
		row(key(LabelAdminBroadcast), key(LabelBack)),
	}}
}

// ResellerMenu is the reseller reply keyboard.
func ResellerMenu() *Keyboard {
	return &Keyboard{Reply: true, Rows: [][]Button{
		row(key(LabelResellerStats), key(LabelResellerUsers)),
		row(key(LabelResellerSubs), key(LabelResellerTxs)),
		row(key(LabelResellerAffiliate), key(LabelBack)),
	}}
}

// ProfileActions hangs under the profile card.
func ProfileActions() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		row(btn("💰 شارژ کیف پول", ActDeposit)),
		row(btn("📜 تاریخچه تراکنش", ActTxHistory)),
		row(btn("🔗 لینک دعوت", ActReferral)),
	}}
}

// PlanChoices lists at most ten plans plus cancel.
func PlanChoices(plans []backend.Plan) *Keyboard {
	kb := &Keyboard{}
	for i, p := range plans {
		if i == listLimit {
			break
		}
		kb.Rows = append(kb.Rows, row(btn(PlanButton(p), ActPlan, itoa(p.ID))))
	}
	kb.Rows = append(kb.Rows, row(btn("🔙 انصراف", ActCancelPurchase)))
	return kb
}

// LocationChoices offers locs for a new subscription.
func LocationChoices(locs []backend.Location) *Keyboard {
	kb := &Keyboard{}
	for _, l := range locs {
		kb.Rows = append(kb.Rows, row(btn(LocationButton(l), ActLocation, l.Tag)))
	}
	kb.Rows = append(kb.Rows, row(btn(LabelBack, ActBackPlans)))
	return kb
}

// ConfirmPurchase asks for the final purchase decision.
func ConfirmPurchase() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		row(btn("✅ تایید و خرید", ActConfirmPurchase), btn("❌ انصراف", ActCancelPurchase)),
	}}
}

// ServiceList links each subscription to its detail card.
func ServiceList(subs []backend.Subscription) *Keyboard {
	kb := &Keyboard{}
	for i, s := range subs {
		if i == listLimit {
			break
		}
		kb.Rows = append(kb.Rows, row(btn(ServiceButton(s), ActService, itoa(s.ID))))
	}
	return kb
}

// ServiceActions manages one subscription.
func ServiceActions(subID int64) *Keyboard {
	id := itoa(subID)
	return &Keyboard{Rows: [][]Button{
		row(btn("🔗 دریافت لینک", ActGetLink, id)),
		row(btn("🔄 تمدید", ActRenew, id), btn("🌍 تغییر لوکیشن", ActChangeLocation, id)),
		row(btn(LabelBack, ActBackServices)),
	}}
}

// RenewShortfall points to the deposit flow.
func RenewShortfall(subID int64) *Keyboard {
	return &Keyboard{Rows: [][]Button{
		row(btn("💰 شارژ کیف پول", ActDeposit)),
		row(btn(LabelBack, ActService, itoa(subID))),
	}}
}

// RenewConfirm asks for the renewal decision.
func RenewConfirm(subID int64) *Keyboard {
	id := itoa(subID)
	return &Keyboard{Rows: [][]Button{
		row(btn("✅ تایید و تمدید", ActConfirmRenew, id), btn("❌ انصراف", ActService, id)),
	}}
}

// NewLocationChoices offers locs for an existing subscription.
func NewLocationChoices(subID int64, locs []backend.Location) *Keyboard {
	kb := &Keyboard{}
	for _, l := range locs {
		kb.Rows = append(kb.Rows, row(btn(LocationButton(l), ActNewLocation, l.Tag)))
	}
	kb.Rows = append(kb.Rows, row(btn(LabelBack, ActService, itoa(subID))))
	return kb
}

// Gateways picks the deposit method.
func Gateways() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		row(btn("💳 پرداخت آنلاین (زیبال)", ActGateway, backend.GatewayZibal)),
		row(btn("🏦 کارت به کارت", ActGateway, backend.GatewayCardToCard)),
		row(btn("🔙 انصراف", ActCancelDeposit)),
	}}
}

// Tutorials picks a platform guide.
func Tutorials() *Keyboard {
	return &Keyboard{Rows: [][]Button{
		row(btn("📱 آموزش iOS", ActTutorial, PlatformIOS)),
		row(btn("🤖 آموزش Android", ActTutorial, PlatformAndroid)),
		row(btn("💻 آموزش Windows", ActTutorial, PlatformWindows)),
		row(btn("🍎 آموزش macOS", ActTutorial, PlatformMacOS)),
	}}
}

// PendingList links each pending transaction to its review card.
func PendingList(txs []backend.Transaction) *Keyboard {
	kb := &Keyboard{}
	for i, tx := range txs {
		if i == listLimit {
			break
		}
		kb.Rows = append(kb.Rows, row(btn(PendingButton(tx), ActAdminTx, itoa(tx.ID))))
	}
	return kb
}

// ReviewTx approves or rejects one transaction.
func ReviewTx(txID int64) *Keyboard {
	id := itoa(txID)
	return &Keyboard{Rows: [][]Button{
		row(btn("✅ تایید", ActApproveTx, id), btn("❌ رد", ActRejectTx, id)),
		row(btn(LabelBack, ActBackPending)),
	}}
}
