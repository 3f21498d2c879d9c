package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"paylio/middleware"
	"paylio/services"
	"paylio/utils"

	"github.com/gorilla/mux"
)

// AdminController обрабатывает запросы административной панели
type AdminController struct {
	admin    *services.AdminService
	accounts *services.AccountService
	metrics  *utils.Metrics
}

// NewAdminController создает новый экземпляр AdminController
func NewAdminController(admin *services.AdminService, accounts *services.AccountService, metrics *utils.Metrics) *AdminController {
	return &AdminController{
		admin:    admin,
		accounts: accounts,
		metrics:  metrics,
	}
}

// pathID извлекает числовой {id} из пути
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// queryBool разбирает необязательный булев параметр запроса
func queryBool(r *http.Request, key string) *bool {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

func accountFilter(r *http.Request) services.AccountFilter {
	q := r.URL.Query()
	return services.AccountFilter{
		Status:       q.Get("status"),
		AccountType:  q.Get("type"),
		KYCSubmitted: queryBool(r, "kyc_submitted"),
		KYCConfirmed: queryBool(r, "kyc_confirmed"),
		Query:        q.Get("q"),
	}
}

// ListAccounts возвращает счета с фильтрами
func (c *AdminController) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := c.admin.ListAccounts(accountFilter(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := make([]services.AdminAccountDTO, 0, len(accounts))
	for i := range accounts {
		response = append(response, services.ToAdminAccountDTO(&accounts[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

// UpdateAccount изменяет тип, статус, баланс и флаги KYC счета
func (c *AdminController) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	var patch services.AccountPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := c.admin.UpdateAccount(id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if user, err := middleware.GetUserFromContext(r); err == nil {
		utils.LogInfo("Счет %d изменен сотрудником %s", id, user.Email)
	}
	writeJSON(w, http.StatusOK, services.ToAdminAccountDTO(account))
}

// ExportAccounts выгружает счета в XML
func (c *AdminController) ExportAccounts(w http.ResponseWriter, r *http.Request) {
	data, err := c.admin.ExportAccountsXML(accountFilter(r), time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="accounts.xml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ListTransactions возвращает транзакции с фильтрами
func (c *AdminController) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.TransactionFilter{
		Status:          q.Get("status"),
		TransactionType: q.Get("type"),
	}
	if raw := q.Get("user_id"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid user_id")
			return
		}
		filter.UserID = uint(userID)
	}

	transactions, err := c.admin.ListTransactions(filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

// UpdateTransaction изменяет сумму, статус и тип транзакции
func (c *AdminController) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	var patch services.TransactionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := c.admin.UpdateTransaction(id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (c *AdminController) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := c.admin.ListNotifications()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (c *AdminController) ListKYC(w http.ResponseWriter, r *http.Request) {
	records, err := c.admin.ListKYC()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Metrics возвращает снимок метрик приложения
func (c *AdminController) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.metrics.GetMetricsSnapshot())
}

// UserDashboard возвращает данные кабинета пользователя; доступно только суперпользователю
func (c *AdminController) UserDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	viewer, _ := middleware.GetUserFromContext(r)
	view, err := c.accounts.AdminView(viewer, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    services.ToUserDTO(view.ViewedUser),
		"account": services.ToAdminAccountDTO(view.Account),
		"kyc":     view.KYC,
	})
}
