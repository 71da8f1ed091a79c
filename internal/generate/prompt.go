package generate

import "fmt"

// scaffoldSystemPrompt pins the model to a strict JSON file-list output so the
// response can be parsed without a repair pass.
const scaffoldSystemPrompt = `You are a Next.js 14 scaffold generator.
You must ONLY output a single JSON object that strictly follows this schema:

{
  "files": [
    {
      "path": string,
      "content": string,
      "encoding": "utf-8" | "base64"
    }
  ]
}

RULES:
- Output ONLY valid JSON. No comments, no explanations, no markdown fences.
- Only generate files inside:
  - app/[route]/page.tsx
  - components/[...].tsx
- Use TypeScript (.tsx) and Tailwind CSS in all components/pages.
- Do NOT generate config files (tailwind.config.js, tsconfig.json, package.json, etc.).
- Binary assets (images) must use "base64" encoding; all other files "utf-8".
- If any file uses React hooks (useState, useEffect, useRef, etc.)
  or has event handlers (onClick, onChange, etc.),
  prepend the file with "use client" (including the quotes) on the first line.
- All components must be valid functional React components.
- Ensure all imports are compatible with Next.js 14 app directory conventions.
- Ensure every generated .tsx file compiles without syntax errors.`

func userPrompt(appName string) string {
	return fmt.Sprintf(`Generate a fully working Next.js 14 app with Tailwind CSS named %q.
It should include at least:
- app/page.tsx with basic UI related to %s
- components/ directory for modular UI
- utils/ directory if needed
Return a JSON with "files": [{ "path": "file path", "content": "file content" }]`, appName, appName)
}
