package translator

import (
	"fmt"
	"strings"

	"ingredient-engine/internal/core/ingredient"
)

const systemPrompt = `You translate Vietnamese cooking ingredient names into English and classify them.
Reply with a single compact JSON object and nothing else. No markdown, no comments.`

func categoryList() string {
	names := make([]string, len(ingredient.Categories))
	for i, c := range ingredient.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// buildTranslatePrompt 建立翻譯提示；reason 非空時附上前一次回覆的問題
func buildTranslatePrompt(sourceText, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ingredient: %q\n\n", sourceText)
	b.WriteString("If this is a food ingredient, reply:\n")
	b.WriteString(`{"is_food":true,"specific":"<precise English name>","general":"<generic English name>","category":"<category>"}`)
	b.WriteString("\n\nIf it is not a food ingredient (gibberish, an object, a person, a sentence), reply:\n")
	b.WriteString(`{"is_food":false,"reason":"<short reason>"}`)
	fmt.Fprintf(&b, "\n\nRules:\n1. category must be exactly one of: %s\n", categoryList())
	b.WriteString("2. specific keeps the cut or variety (\"pork belly\"), general drops it (\"pork\")\n")
	b.WriteString("3. use lowercase English, no brand names\n")
	if strings.TrimSpace(reason) != "" {
		fmt.Fprintf(&b, "\nYour previous reply could not be used: %s\nReturn only the JSON object.\n", reason)
	}
	return b.String()
}

// buildNutritionPrompt 建立營養估算提示
func buildNutritionPrompt(specific, reason string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimate the nutrition of 100 grams of raw %q.\n", specific)
	b.WriteString("Reply with numbers only, per 100 g:\n")
	b.WriteString(`{"calories":0,"protein":0,"carbs":0,"fat":0,"fiber":0}`)
	b.WriteString("\ncalories in kcal, the rest in grams.\n")
	if strings.TrimSpace(reason) != "" {
		fmt.Fprintf(&b, "\nYour previous reply could not be used: %s\nReturn only the JSON object.\n", reason)
	}
	return b.String()
}
