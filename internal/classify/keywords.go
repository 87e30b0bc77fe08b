// internal/classify/keywords.go
package classify

import "github.com/hhamzie/toolplug/internal/models"

// Topic-slug hints score double weight; body keywords score single weight.
// Both lists are part of the versioned category contract: tuning them shifts
// routing but never changes the category set itself.

var topicHints = map[models.Category][]string{
	models.CategoryDev:      {"developer", "dev", "code", "api", "sdk", "cli", "terminal", "git", "ide", "framework", "library", "docker", "kubernetes", "typescript", "database", "backend"},
	models.CategoryDesign:   {"design", "ui", "ux", "figma", "prototype", "wireframe", "mockup", "icon", "illustration", "typography", "font", "palette", "color"},
	models.CategoryProduct:  {"productivity", "product", "notes", "docs", "wiki", "crm", "analytics", "dashboard", "project", "tasks", "todo", "okr", "collaboration", "team", "workflow", "roadmap"},
	models.CategoryOps:      {"devops", "ops", "sre", "infra", "monitor", "observability", "logging", "traces", "alert", "oncall", "uptime", "deploy", "ci", "cd", "k8s", "serverless", "cloud", "aws", "gcp", "azure", "security", "iam", "sso", "terraform", "helm", "backup"},
	models.CategoryCreators: {"creator", "content", "video", "tiktok", "reels", "youtube", "stream", "twitch", "record", "editor", "caption", "subtitle", "thumbnail", "audio", "music", "podcast", "photo", "photography", "luts"},
	models.CategoryWildcard: {"fun", "games", "entertainment", "novelty", "random", "lifestyle", "habit", "fitness", "travel", "finance", "budget", "health", "wellness", "misc"},
}

var bodyKeywords = map[models.Category][]string{
	models.CategoryDev:      {"developer", "dev", "cli", "terminal", "sdk", "api", "graphql", "rest", "code", "program", "library", "framework", "git", "repo", "docker", "kubernetes", "typescript", "ide", "testing", "ci", "cd"},
	models.CategoryDesign:   {"design", "designer", "ui", "ux", "figma", "wireframe", "prototype", "mockup", "icon", "illustration", "typography", "font", "palette", "color", "layout"},
	models.CategoryProduct:  {"productivity", "product", "notes", "docs", "wiki", "crm", "analytics", "dashboard", "project", "tasks", "todo", "okr", "collaboration", "team", "workflow", "roadmap"},
	models.CategoryOps:      {"devops", "ops", "sre", "infra", "observability", "monitoring", "logging", "traces", "alert", "oncall", "uptime", "deploy", "pipeline", "ci", "cd", "k8s", "serverless", "cloud", "aws", "gcp", "azure", "security", "iam", "sso", "terraform", "helm", "backup"},
	models.CategoryCreators: {"creator", "content", "video", "shorts", "tiktok", "reels", "youtube", "stream", "twitch", "record", "screen", "editor", "caption", "subtitle", "thumbnail", "audio", "music", "podcast", "photo", "photography", "luts"},
	models.CategoryWildcard: {"fun", "game", "entertainment", "novelty", "random", "lifestyle", "habit", "fitness", "travel", "finance", "budget", "health", "wellness", "misc"},
}
