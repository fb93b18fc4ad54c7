package tests

import (
	"net/http"
	"testing"

	"github.com/vairaa/kazi/core/task"
	"github.com/vairaa/kazi/core/user"
)

func Test_taskLifecycle(t *testing.T) {
	admin, adminPass := provision(t, "Boss T", "boss-task@test.cd", user.RoleAdmin)
	student, studentPass := provision(t, "Student T", "student-task@test.cd", user.RoleStudent)
	adminToken := getToken(t, admin.Email, adminPass)
	studentToken := getToken(t, student.Email, studentPass)

	// topic
	rec, body := doRequest(t, http.MethodPost, "/v1/topics", adminToken, map[string]interface{}{
		"title": "Express Routing", "section": "MERN", "topic_date": "2026-09-01", "duration": 90,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("topic create code = %d, body = %s", rec.Code, body)
	}
	var topic task.Topic
	decode(t, body, &topic)

	rec, body = doRequest(t, http.MethodPost, "/v1/topics/"+topic.ID+"/notes", adminToken, map[string]string{
		"link": "https://docs.test/express.pdf",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("attach notes code = %d, body = %s", rec.Code, body)
	}

	// task under the topic
	rec, body = doRequest(t, http.MethodPost, "/v1/tasks", adminToken, map[string]interface{}{
		"title": "Build a REST API", "section": "MERN", "due_date": "2026-09-15",
		"max_marks": 10, "topic_id": topic.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("task create code = %d, body = %s", rec.Code, body)
	}
	var tk task.Task
	decode(t, body, &tk)

	// students cannot create tasks
	rec, _ = doRequest(t, http.MethodPost, "/v1/tasks", studentToken, map[string]interface{}{
		"title": "Nope", "section": "MERN", "due_date": "2026-09-15", "max_marks": 10,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("student task create code = %d", rec.Code)
	}

	// assign to the student
	rec, body = doRequest(t, http.MethodPost, "/v1/tasks/assign", adminToken, map[string]interface{}{
		"task_id": tk.ID, "user_ids": []string{student.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("assign code = %d, body = %s", rec.Code, body)
	}

	// assigning twice conflicts
	rec, _ = doRequest(t, http.MethodPost, "/v1/tasks/assign", adminToken, map[string]interface{}{
		"task_id": tk.ID, "user_ids": []string{student.ID},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate assign code = %d", rec.Code)
	}

	// dashboard shows the pending task
	rec, body = doRequest(t, http.MethodGet, "/v1/dashboard", studentToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard code = %d, body = %s", rec.Code, body)
	}
	var dash task.Dashboard
	decode(t, body, &dash)
	if dash.Records.TotalTasks != 1 || dash.Records.TotalPendingTask != 1 {
		t.Errorf("dashboard records = %+v", dash.Records)
	}

	// pending assignees lists the student
	rec, body = doRequest(t, http.MethodGet, "/v1/tasks/"+tk.ID+"/assignees", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("assignees code = %d, body = %s", rec.Code, body)
	}
	var pending task.Assignees
	decode(t, body, &pending)
	if pending.Stats.TotalUsers != 1 {
		t.Errorf("pending assignees = %+v", pending.Stats)
	}

	// grade it
	rec, body = doRequest(t, http.MethodPost, "/v1/tasks/marks", adminToken, map[string]interface{}{
		"user_id": student.ID, "task_id": tk.ID, "mark": 9,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("marks code = %d, body = %s", rec.Code, body)
	}
	var marked struct {
		Total int `json:"total"`
	}
	decode(t, body, &marked)
	if marked.Total != 9 {
		t.Errorf("total = %d, want 9", marked.Total)
	}

	// grading an unassigned pair 404s
	rec, _ = doRequest(t, http.MethodPost, "/v1/tasks/marks", adminToken, map[string]interface{}{
		"user_id": admin.ID, "task_id": tk.ID, "mark": 9,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unassigned mark code = %d", rec.Code)
	}

	// dashboard reflects completion
	rec, body = doRequest(t, http.MethodGet, "/v1/dashboard", studentToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard code = %d", rec.Code)
	}
	decode(t, body, &dash)
	if dash.Records.TotalCompletedTask != 1 || dash.Records.TotalPendingTask != 0 {
		t.Errorf("dashboard after grading = %+v", dash.Records)
	}
	if dash.User.TotalMark() != 9 {
		t.Errorf("dashboard total mark = %d, want 9", dash.User.TotalMark())
	}
}

func Test_profile(t *testing.T) {
	usr, pass := provision(t, "Profila", "profila@test.cd", user.RoleStudent)
	token := getToken(t, usr.Email, pass)

	rec, body := doRequest(t, http.MethodGet, "/v1/profile", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile get code = %d, body = %s", rec.Code, body)
	}
	var res struct {
		User    user.User     `json:"user"`
		Profile *user.Profile `json:"profile"`
	}
	decode(t, body, &res)
	if res.Profile != nil {
		t.Errorf("profile before first update = %+v", res.Profile)
	}

	rec, body = doRequest(t, http.MethodPut, "/v1/profile", token, map[string]interface{}{
		"department": "MERN", "github_url": "https://github.com/profila",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("profile put code = %d, body = %s", rec.Code, body)
	}
	decode(t, body, &res)
	if res.Profile == nil || res.Profile.Department != "MERN" {
		t.Errorf("updated profile = %+v", res.Profile)
	}

	// invalid URL is a field error
	rec, _ = doRequest(t, http.MethodPut, "/v1/profile", token, map[string]interface{}{
		"github_url": "not-a-url",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad url code = %d", rec.Code)
	}
}
