package response_models

type LoginResponse struct {
	Token string `json:"token"`
}

type UserConfig struct {
	UserName             string `json:"user_name"`
	IsDarkMode           bool   `json:"isDarkMode"`
	SelectedModel        string `json:"selectedModel"`
	ChatHistoryMaxLength int    `json:"chat_history_max_length"`
	InputTextLength      int    `json:"input_text_length"`
	MonthlyCost          int64  `json:"monthly_cost"`
	Plan                 string `json:"plan"`
	SortOrder            string `json:"sortOrder"`
}
