package templates

import (
	"sort"
	"strings"
)

type Template struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

var catalog = map[string]Template{
	"order_confirmation_ar": {
		Name:     "order_confirmation_ar",
		Language: "ar",
		Content: `#BUT{{orderid}} تأكيد طلب
أزيك يا {{name}}! 🐥

🐥 طلبك: #BUT{{orderid}} 

🚚 هيوصل على: {{address}}

💰 الإجمالي: {{price}} جنيه

مُسعد البطة بيشكرك على طلبك من Lazybut بالنيابة عن كل البط. 🐥

كنا عايزين نأكد طلبك قبل ما نشحنه
عايز تأكّد الطلب؟✅`,
	},
	"order_confirmation": {
		Name:     "order_confirmation",
		Language: "en",
		Content: `#BUT{{orderid}} Order Confirmation
Hello {{name}}! 🐥

🐥 Order: #BUT{{orderid}}

🚚 Shipping Address: {{address}}

💰 Total Price: {{price}} EGP

Mosaad Al-Duck thanks you on behalf of all the ducks for ordering from Lazybut 💛

I just wanted to confirm your order before shipping it out 

Do you want to confirm? ✅`,
	},
	"order_cancellation_en": {
		Name:     "order_cancellation_en",
		Language: "en",
		Content:  `Do you want to cancel the order or edit it only?`,
	},
	"order_cancellation_ar": {
		Name:     "order_cancellation_ar",
		Language: "ar",
		Content:  `عايز تلغي الاوردر ولا تعدله؟`,
	},
	"order_shipping_en": {
		Name:     "order_shipping_en",
		Language: "en",
		Content: `Order Confirmed!
Alright great!🐥
Orders take 2 - 7 Business Days (excluding weekends and holidays), so expect a call from the courier within this period 🐥

Please read our shipping and cancellation policy from here: https://lazybut.net/policies/shipping-policy 🐥 

⚠️ Please note: The shipping company only allows 3 rescheduling attempts. If the order isn’t delivered within 8 days, it will be automatically canceled. So if you’d like to adjust the delivery date in advance, just let us know to avoid any issues 🐥

Thank you 🐥`,
	},
	"order_shipping_ar": {
		Name:     "order_shipping_ar",
		Language: "ar",
		Content: `الطلب اتأكد!
تمام يا {{name}}! 🐥

الطلبات بتاخد من 2 لـ 7 أيام عمل (ماعدا اجازة نهاية الاسبوع والعطلات)، فاستنّى مكالمة من شركة الشحن خلال الفترة دي 🐥

ممكن تطّلع على سياسة الشحن والإلغاء من هنا:

https://lazybut.net/policies/shipping-policy🐥

⚠️ خد بالك إن شركة الشحن بتديك 3 محاولات بس علشان تأجّل استلام الشحنة قبل ما يتلغى الطلب أوتوماتيك، وكمان الطلب بيقعد معاهم بحد أقصى 8 أيام.
يعني لو مش متاح تستلمه أو حابب تغيّر معاد الاستلام من دلوقتي عشان نتفادى أي مشاكل، ياريت تبلغنا 🐥

شكرًا ليك 🐥`,
	},
}

// Render fills {{key}} placeholders. Unknown templates render as a placeholder line
// instead of failing. Placeholders with no variable are left in place.
func Render(name string, variables map[string]string) string {
	tpl, ok := Lookup(name)
	if !ok {
		return "Template: " + name
	}
	content := tpl.Content
	for key, value := range variables {
		content = strings.ReplaceAll(content, "{{"+key+"}}", value)
	}
	return content
}

func Lookup(name string) (Template, bool) {
	tpl, ok := catalog[strings.TrimSpace(name)]
	return tpl, ok
}

// Names lists the known templates, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
