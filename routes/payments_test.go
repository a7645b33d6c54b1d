package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/services"
	"github.com/saliftankoano/roogo-web-sub000/storage"
)

func seedRenterAndProperty(t *testing.T, status string, publishedAgo time.Duration) (models.User, models.Property) {
	t.Helper()

	agent := models.User{FirstName: "Agent", PhoneNumber: "22670005000", Role: "agent"}
	renter := models.User{FirstName: "Awa", PhoneNumber: "22670005001", Role: "user"}
	storage.DB.Create(&agent)
	storage.DB.Create(&renter)

	publishedAt := time.Now().UTC().Add(-publishedAgo)
	property := models.Property{
		AgentID:     agent.ID,
		Title:       "Studio Gounghin",
		Price:       250000,
		Currency:    "XOF",
		Status:      status,
		PublishedAt: &publishedAt,
	}
	storage.DB.Create(&property)
	return renter, property
}

func postJSON(app http.Handler, token, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func TestInitiatePropertyLock(t *testing.T) {
	setupTestDB(t)
	app, _, gateway := buildTestApp(t)

	renter, property := seedRenterAndProperty(t, models.PropertyStatusPublished, 24*time.Hour)
	token := signTestToken(renter.ID, "user")

	body := `{"propertyID": ` + jsonID(property.ID) + `, "phoneNumber": "70123456", "provider": "orange_money"}`
	resp := postJSON(app, token, "/api/payments/property-lock", body)
	if resp.Code != http.StatusCreated {
		t.Fatalf("initiate status = %d: %s", resp.Code, resp.Body.String())
	}

	var out struct {
		DepositID string `json:"depositId"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("unparseable response: %s", resp.Body.String())
	}
	if out.Amount != 25000 {
		t.Fatalf("fee = %d, want 25000 (10%% of 250000)", out.Amount)
	}
	if out.Status != models.TransactionStatusSubmitted {
		t.Fatalf("status = %q, want submitted (gateway said ACCEPTED)", out.Status)
	}

	if len(gateway.requests) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(gateway.requests))
	}
	if got := gateway.requests[0].PhoneNumber; got != "22670123456" {
		t.Fatalf("gateway phone = %q, want normalized 22670123456", got)
	}

	var transaction models.Transaction
	if err := storage.DB.Where("deposit_id = ?", out.DepositID).First(&transaction).Error; err != nil {
		t.Fatalf("ledger row missing for %s: %v", out.DepositID, err)
	}
	if transaction.Type != models.TransactionTypePropertyLock || transaction.Amount != 25000 {
		t.Fatalf("ledger row = %+v", transaction)
	}
}

func TestInitiatePropertyLockIneligible(t *testing.T) {
	setupTestDB(t)
	app, _, gateway := buildTestApp(t)

	renter, property := seedRenterAndProperty(t, models.PropertyStatusLocked, 24*time.Hour)
	token := signTestToken(renter.ID, "user")

	body := `{"propertyID": ` + jsonID(property.ID) + `, "phoneNumber": "70123456", "provider": "orange_money"}`
	resp := postJSON(app, token, "/api/payments/property-lock", body)
	if resp.Code != http.StatusBadRequest || errorCode(t, resp) != "ineligible_status" {
		t.Fatalf("ineligible property: status=%d body=%s", resp.Code, resp.Body.String())
	}

	// No ledger row and no gateway call for a rejected attempt.
	var count int64
	storage.DB.Model(&models.Transaction{}).Count(&count)
	if count != 0 {
		t.Fatalf("transactions = %d, want 0", count)
	}
	if len(gateway.requests) != 0 {
		t.Fatalf("gateway calls = %d, want 0", len(gateway.requests))
	}
}

func TestInitiatePropertyLockWindowExpired(t *testing.T) {
	setupTestDB(t)
	app, _, _ := buildTestApp(t)

	renter, property := seedRenterAndProperty(t, models.PropertyStatusPublished, 50*time.Hour)
	token := signTestToken(renter.ID, "user")

	body := `{"propertyID": ` + jsonID(property.ID) + `, "phoneNumber": "70123456", "provider": "moov_money"}`
	resp := postJSON(app, token, "/api/payments/property-lock", body)
	if resp.Code != http.StatusBadRequest || errorCode(t, resp) != "window_expired" {
		t.Fatalf("expired window: status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestPaymentCallbackCompletesLock(t *testing.T) {
	setupTestDB(t)
	app, notifier, _ := buildTestApp(t)

	renter, property := seedRenterAndProperty(t, models.PropertyStatusPublished, 24*time.Hour)

	transaction := models.Transaction{
		DepositID:   "dep-cb-1",
		Amount:      25000,
		Currency:    "XOF",
		Status:      models.TransactionStatusPending,
		Type:        models.TransactionTypePropertyLock,
		PropertyID:  &property.ID,
		UserID:      &renter.ID,
		PhoneNumber: "22670123456",
		Provider:    "orange_money",
	}
	storage.DB.Create(&transaction)

	body := `{"depositId": "dep-cb-1", "status": "COMPLETED"}`
	resp := postJSON(app, "", "/api/payments/callback", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("callback status = %d: %s", resp.Code, resp.Body.String())
	}

	var lockCount int64
	storage.DB.Model(&models.PropertyLock{}).Where("property_id = ?", property.ID).Count(&lockCount)
	if lockCount != 1 {
		t.Fatalf("locks = %d, want 1", lockCount)
	}

	var after models.Property
	storage.DB.First(&after, property.ID)
	if after.Status != models.PropertyStatusLocked {
		t.Fatalf("property status = %q, want locked", after.Status)
	}

	if len(notifier.events) != 1 || notifier.events[0].Kind != services.LockEventDay0 {
		t.Fatalf("events = %+v, want one DAY_0", notifier.events)
	}

	// Redelivery of the same terminal callback is a no-op.
	resp = postJSON(app, "", "/api/payments/callback", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d: %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Processed bool `json:"processed"`
	}
	json.Unmarshal(resp.Body.Bytes(), &out)
	if out.Processed {
		t.Fatal("redelivery reported processed=true")
	}

	storage.DB.Model(&models.PropertyLock{}).Where("property_id = ?", property.ID).Count(&lockCount)
	if lockCount != 1 {
		t.Fatalf("locks after redelivery = %d, want 1", lockCount)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("events after redelivery = %d, want 1", len(notifier.events))
	}
}

func TestPaymentCallbackLateDeliveryKeepsFinalizedProperty(t *testing.T) {
	setupTestDB(t)
	app, notifier, _ := buildTestApp(t)

	renterA, property := seedRenterAndProperty(t, models.PropertyStatusPublished, 2*time.Hour)
	renterB := models.User{FirstName: "Fati", PhoneNumber: "22670005003", Role: "user"}
	storage.DB.Create(&renterB)

	txA := models.Transaction{
		DepositID: "dep-race-a", Amount: 25000,
		Status: models.TransactionStatusPending, Type: models.TransactionTypePropertyLock,
		PropertyID: &property.ID, UserID: &renterA.ID,
	}
	txB := models.Transaction{
		DepositID: "dep-race-b", Amount: 25000,
		Status: models.TransactionStatusPending, Type: models.TransactionTypePropertyLock,
		PropertyID: &property.ID, UserID: &renterB.ID,
	}
	storage.DB.Create(&txA)
	storage.DB.Create(&txB)

	resp := postJSON(app, "", "/api/payments/callback", `{"depositId": "dep-race-a", "status": "COMPLETED"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("renter A callback status = %d: %s", resp.Code, resp.Body.String())
	}

	staff := models.User{FirstName: "Admin", PhoneNumber: "22670005004", Role: "admin"}
	storage.DB.Create(&staff)
	var lockA models.PropertyLock
	storage.DB.Where("transaction_id = ?", txA.ID).First(&lockA)
	resp = postLockAction(app, signTestToken(staff.ID, "admin"), jsonID(lockA.ID), "finalize")
	if resp.Code != http.StatusOK {
		t.Fatalf("finalize status = %d: %s", resp.Code, resp.Body.String())
	}

	// Renter B paid inside the same window; the callback lands after the
	// deal closed. The listing must stay rented.
	resp = postJSON(app, "", "/api/payments/callback", `{"depositId": "dep-race-b", "status": "COMPLETED"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("renter B callback status = %d: %s", resp.Code, resp.Body.String())
	}

	var after models.Property
	storage.DB.First(&after, property.ID)
	if after.Status != models.PropertyStatusFinalized {
		t.Fatalf("property status = %q, want finalized", after.Status)
	}

	var active int64
	storage.DB.Model(&models.PropertyLock{}).
		Where("property_id = ? AND status = ?", property.ID, models.LockStatusActive).
		Count(&active)
	if active != 0 {
		t.Fatalf("active locks = %d, want 0", active)
	}

	for _, ev := range notifier.events {
		if ev.Kind == services.LockEventDay0 && ev.RenterID == renterB.ID {
			t.Fatalf("late deposit dispatched DAY_0 to renter %d", renterB.ID)
		}
	}
}

func TestPaymentCallbackRetriesAfterLockFailure(t *testing.T) {
	setupTestDB(t)
	app, _, _ := buildTestApp(t)

	renter := models.User{FirstName: "Awa", PhoneNumber: "22670005005", Role: "user"}
	storage.DB.Create(&renter)

	// Points at a property that does not exist yet, so lock creation
	// fails on the first delivery.
	missingID := uint(9999)
	transaction := models.Transaction{
		DepositID: "dep-retry-1", Amount: 25000,
		Status: models.TransactionStatusPending, Type: models.TransactionTypePropertyLock,
		PropertyID: &missingID, UserID: &renter.ID,
	}
	storage.DB.Create(&transaction)

	body := `{"depositId": "dep-retry-1", "status": "COMPLETED"}`
	resp := postJSON(app, "", "/api/payments/callback", body)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("first delivery status = %d, want 500", resp.Code)
	}

	// The ledger row must not turn terminal on a failed lock creation,
	// or the redelivery would be short-circuited.
	var after models.Transaction
	storage.DB.Where("deposit_id = ?", "dep-retry-1").First(&after)
	if after.Status != models.TransactionStatusPending {
		t.Fatalf("status after failure = %q, want pending", after.Status)
	}

	agent := models.User{FirstName: "Agent", PhoneNumber: "22670005006", Role: "agent"}
	storage.DB.Create(&agent)
	publishedAt := time.Now().UTC().Add(-time.Hour)
	property := models.Property{
		AgentID: agent.ID, Title: "Studio Gounghin", Price: 250000,
		Status: models.PropertyStatusPublished, PublishedAt: &publishedAt,
	}
	property.ID = missingID
	storage.DB.Create(&property)

	resp = postJSON(app, "", "/api/payments/callback", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d: %s", resp.Code, resp.Body.String())
	}

	storage.DB.Where("deposit_id = ?", "dep-retry-1").First(&after)
	if after.Status != models.TransactionStatusCompleted {
		t.Fatalf("status after redelivery = %q, want completed", after.Status)
	}

	var lockCount int64
	storage.DB.Model(&models.PropertyLock{}).Where("property_id = ?", property.ID).Count(&lockCount)
	if lockCount != 1 {
		t.Fatalf("locks = %d, want 1", lockCount)
	}
}

func TestPaymentCallbackFailureKeepsReason(t *testing.T) {
	setupTestDB(t)
	app, _, _ := buildTestApp(t)

	renter, property := seedRenterAndProperty(t, models.PropertyStatusPublished, 24*time.Hour)
	transaction := models.Transaction{
		DepositID:  "dep-cb-2",
		Amount:     25000,
		Status:     models.TransactionStatusPending,
		Type:       models.TransactionTypePropertyLock,
		PropertyID: &property.ID,
		UserID:     &renter.ID,
	}
	storage.DB.Create(&transaction)

	body := `{"depositId": "dep-cb-2", "status": "FAILED", "failureReason": "INSUFFICIENT_BALANCE"}`
	resp := postJSON(app, "", "/api/payments/callback", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("callback status = %d: %s", resp.Code, resp.Body.String())
	}

	var after models.Transaction
	storage.DB.Where("deposit_id = ?", "dep-cb-2").First(&after)
	if after.Status != models.TransactionStatusFailed || after.FailureReason != "INSUFFICIENT_BALANCE" {
		t.Fatalf("transaction after failure = status %q reason %q", after.Status, after.FailureReason)
	}

	var lockCount int64
	storage.DB.Model(&models.PropertyLock{}).Count(&lockCount)
	if lockCount != 0 {
		t.Fatalf("locks = %d, want 0", lockCount)
	}
}

func TestPaymentCallbackUnknownDeposit(t *testing.T) {
	setupTestDB(t)
	app, _, _ := buildTestApp(t)

	resp := postJSON(app, "", "/api/payments/callback", `{"depositId": "nope", "status": "COMPLETED"}`)
	if resp.Code != http.StatusNotFound || errorCode(t, resp) != "unknown_deposit" {
		t.Fatalf("unknown deposit: status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestGetPaymentStatusAccess(t *testing.T) {
	setupTestDB(t)
	app, _, _ := buildTestApp(t)

	renter, property := seedRenterAndProperty(t, models.PropertyStatusPublished, 24*time.Hour)
	other := models.User{FirstName: "Other", PhoneNumber: "22670005002", Role: "user"}
	storage.DB.Create(&other)

	transaction := models.Transaction{
		DepositID:  "dep-st-1",
		Amount:     25000,
		Status:     models.TransactionStatusSubmitted,
		Type:       models.TransactionTypePropertyLock,
		PropertyID: &property.ID,
		UserID:     &renter.ID,
	}
	storage.DB.Create(&transaction)

	get := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/payments/dep-st-1/status", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		app.ServeHTTP(resp, req)
		return resp
	}

	resp := get(signTestToken(renter.ID, "user"))
	if resp.Code != http.StatusOK {
		t.Fatalf("owner read status = %d: %s", resp.Code, resp.Body.String())
	}

	resp = get(signTestToken(other.ID, "user"))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("stranger read status = %d, want 403", resp.Code)
	}

	staff := models.User{FirstName: "Admin", PhoneNumber: "22670005007", Role: "admin"}
	storage.DB.Create(&staff)
	resp = get(signTestToken(staff.ID, "admin"))
	if resp.Code != http.StatusOK {
		t.Fatalf("staff read status = %d: %s", resp.Code, resp.Body.String())
	}
}
