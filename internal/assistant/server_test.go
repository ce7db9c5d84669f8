package assistant

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/thanaphumeng-byte/Dose-DISH-APP/internal/analysis"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		analyzer    *mockAnalyzer
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		// Some specs issue more than one request
		ghttpServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)
	}

	BeforeEach(func() {
		db = newMockDB()
		analyzer = &mockAnalyzer{reply: "Name: Atorvastatin\nGenerally safe with your regimen."}
		service = NewServiceWithDeps(db, analyzer, &fixedIDGenerator{}, &fixedTimeSource{now: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)})
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleGetProfile", func() {
		When("a profile exists", func() {
			BeforeEach(func() {
				db.profile = testProfile()
			})

			It("should return status OK", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/profile")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})

			It("should return the profile as JSON", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/profile")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				var profile UserProfile
				Expect(json.NewDecoder(resp.Body).Decode(&profile)).NotTo(HaveOccurred())
				Expect(profile.Name).To(Equal("Jane Doe"))
			})
		})

		When("no profile exists", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/profile")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleSaveProfile", func() {
		var doPut = func(body string) *http.Response {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/profile", strings.NewReader(body))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		When("the profile is valid", func() {
			It("should persist it and return status OK", func() {
				resp := doPut(`{"name":"Jane Doe","age":58,"conditions":"Hypertension"}`)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(db.profile.Name).To(Equal("Jane Doe"))
			})
		})

		When("the name is missing", func() {
			It("should return status Bad Request", func() {
				resp := doPut(`{"age":58}`)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the body is not JSON", func() {
			It("should return status Bad Request", func() {
				resp := doPut(`not json`)
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleScan", func() {
		var buildForm = func(fields map[string]string, filename string, fileData []byte) (*bytes.Buffer, string) {
			body := &bytes.Buffer{}
			writer := multipart.NewWriter(body)
			for key, value := range fields {
				Expect(writer.WriteField(key, value)).NotTo(HaveOccurred())
			}
			if filename != "" {
				part, err := writer.CreateFormFile("file", filename)
				Expect(err).NotTo(HaveOccurred())
				_, err = part.Write(fileData)
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(writer.Close()).NotTo(HaveOccurred())
			return body, writer.FormDataContentType()
		}

		When("a text-only scan is submitted with a profile", func() {
			BeforeEach(func() {
				db.profile = testProfile()
			})

			It("should return the analysis result", func() {
				body, contentType := buildForm(map[string]string{
					"mode":     string(analysis.ModeMedication),
					"language": string(analysis.LangEnglish),
					"text":     "Atorvastatin 20mg",
				}, "", nil)

				resp, err := http.Post(ghttpServer.URL()+"/api/scan", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var result AnalysisResult
				Expect(json.NewDecoder(resp.Body).Decode(&result)).NotTo(HaveOccurred())
				Expect(result.RiskLevel).To(Equal(analysis.RiskSafe))
				Expect(result.Extracted).NotTo(BeNil())
				Expect(result.Extracted.Name).To(Equal("Atorvastatin"))
			})
		})

		When("a file is attached", func() {
			BeforeEach(func() {
				db.profile = testProfile()
			})

			It("should pass the image through to the analyzer", func() {
				body, contentType := buildForm(map[string]string{
					"mode":     string(analysis.ModeMeal),
					"language": string(analysis.LangEnglish),
				}, "dinner.png", []byte("png-bytes"))

				resp, err := http.Post(ghttpServer.URL()+"/api/scan", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(analyzer.prompts).To(HaveLen(1))
				Expect(analyzer.prompts[0].Image).To(Equal([]byte("png-bytes")))
			})
		})

		When("no profile is saved", func() {
			It("should return status Precondition Failed", func() {
				body, contentType := buildForm(map[string]string{
					"mode":     string(analysis.ModeMedication),
					"language": string(analysis.LangEnglish),
					"text":     "Atorvastatin",
				}, "", nil)

				resp, err := http.Post(ghttpServer.URL()+"/api/scan", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusPreconditionFailed))
				respBody, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(respBody)).To(ContainSubstring("complete your profile"))
			})
		})

		When("neither text nor file is submitted", func() {
			BeforeEach(func() {
				db.profile = testProfile()
			})

			It("should return status Bad Request", func() {
				body, contentType := buildForm(map[string]string{
					"mode":     string(analysis.ModeMedication),
					"language": string(analysis.LangEnglish),
				}, "", nil)

				resp, err := http.Post(ghttpServer.URL()+"/api/scan", contentType, body)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})
	})

	Describe("handleInteractionCheck", func() {
		It("should work without a profile", func() {
			analyzer.reply = "Grapefruit juice is generally safe with this medication."
			resp, err := http.Post(ghttpServer.URL()+"/api/interactions", "application/json",
				strings.NewReader(`{"food":"Grapefruit","drug":"Atorvastatin","language":"en"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result AnalysisResult
			Expect(json.NewDecoder(resp.Body).Decode(&result)).NotTo(HaveOccurred())
			Expect(result.RiskLevel).To(Equal(analysis.RiskSafe))
			Expect(result.Mode).To(Equal(analysis.ModeInteraction))
		})

		It("should reject an empty food item", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/interactions", "application/json",
				strings.NewReader(`{"food":"","drug":"Atorvastatin","language":"en"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})
	})

	Describe("chat endpoints", func() {
		BeforeEach(func() {
			db.profile = testProfile()
			analyzer.reply = "Use caution with NSAIDs."
		})

		It("should send a message and return the model reply", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/chat", "application/json",
				strings.NewReader(`{"message":"Can I take ibuprofen?","language":"en"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var reply ChatMessage
			Expect(json.NewDecoder(resp.Body).Decode(&reply)).NotTo(HaveOccurred())
			Expect(reply.Role).To(Equal(analysis.RoleModel))
			Expect(reply.Text).To(ContainSubstring("caution"))
		})

		It("should accept a base64 image with a data URI prefix", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/chat", "application/json",
				strings.NewReader(`{"message":"What is this pill?","image":"data:image/png;base64,cG5nLWJ5dGVz","image_type":"image/png","language":"en"}`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(analyzer.prompts[0].Image).To(Equal([]byte("png-bytes")))
		})

		It("should reject malformed base64", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/chat", "application/json",
				strings.NewReader(`{"message":"hi","image":"%%%not-base64%%%","language":"en"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			resp.Body.Close()
		})

		It("should list the conversation in send order", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/chat", "application/json",
				strings.NewReader(`{"message":"Can I take ibuprofen?","language":"en"}`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			resp, err = http.Get(ghttpServer.URL() + "/api/chat")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			var history []ChatMessage
			Expect(json.NewDecoder(resp.Body).Decode(&history)).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			Expect(history[0].Role).To(Equal(analysis.RoleUser))
			Expect(history[1].Role).To(Equal(analysis.RoleModel))
		})

		It("should clear the conversation on DELETE", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/chat", "application/json",
				strings.NewReader(`{"message":"hello","language":"en"}`))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/chat", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err = http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(service.ChatHistory()).To(BeEmpty())
		})
	})

	Describe("handleLabSeries", func() {
		When("the history holds lab results", func() {
			BeforeEach(func() {
				profile := testProfile()
				profile.History = []HistoryItem{
					{Type: analysis.ModeLabResult, Name: "LDL Cholesterol", Value: "152", Date: "2024-01-10"},
				}
				db.profile = profile
			})

			It("should return the chartable points", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/labs")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var points []LabPoint
				Expect(json.NewDecoder(resp.Body).Decode(&points)).NotTo(HaveOccurred())
				Expect(points).To(HaveLen(1))
				Expect(points[0].Value).To(Equal(152.0))
			})
		})

		When("no profile exists", func() {
			It("should return an empty array", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/labs")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(strings.TrimSpace(string(body))).To(Equal("[]"))
			})
		})
	})

	Describe("theme endpoints", func() {
		It("should default to light", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/theme")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			var body map[string]string
			Expect(json.NewDecoder(resp.Body).Decode(&body)).NotTo(HaveOccurred())
			Expect(body["theme"]).To(Equal("light"))
		})

		It("should save a valid theme", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/theme", strings.NewReader(`{"theme":"dark"}`))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(db.theme).To(Equal("dark"))
		})

		It("should reject an unknown theme", func() {
			req, err := http.NewRequest("PUT", ghttpServer.URL()+"/api/theme", strings.NewReader(`{"theme":"sepia"}`))
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			server = NewServerWithMux(service, auth, http.NewServeMux())
			setupServer()
		})

		When("credentials are missing", func() {
			It("should return status Unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/theme")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				resp.Body.Close()
			})
		})

		When("credentials are valid", func() {
			It("should serve the request", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/theme", nil)
				Expect(err).NotTo(HaveOccurred())
				req.SetBasicAuth("admin", "secret")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})
	})
})
